package repository

import (
	"context"
	"errors"
	"time"

	"buzzline/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, notification entity.Notification) (entity.Notification, error)
	Get(ctx context.Context, notificationId, receiverId string) (entity.Notification, error)
	List(ctx context.Context, filter entity.NotificationListFilter) ([]entity.Notification, error)
	Count(ctx context.Context, receiverId string) (int64, error)
	UnreadCount(ctx context.Context, receiverId string) (int64, error)
	MarkRead(ctx context.Context, notificationId, receiverId string) (entity.Notification, error)
	MarkAllRead(ctx context.Context, receiverId string) (int64, error)
	Delete(ctx context.Context, notificationId, receiverId string) error
	DeleteAll(ctx context.Context, receiverId string) (int64, error)
	ClearUnread(ctx context.Context, receiverId string) (int64, error)
	Stats(ctx context.Context, receiverId string) (entity.NotificationStats, error)
}

type notificationRepository struct {
	db *mongo.Database
}

func NewNotificationRepository(db *mongo.Database) NotificationRepository {
	return &notificationRepository{
		db: db,
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification entity.Notification) (entity.Notification, error) {
	collection := r.db.Collection("notifications")
	notification.Id = uuid.New().String()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	_, err := collection.InsertOne(ctx, notification)
	if err != nil {
		return entity.Notification{}, err
	}

	return notification, nil
}

func (r *notificationRepository) Get(ctx context.Context, notificationId, receiverId string) (entity.Notification, error) {
	collection := r.db.Collection("notifications")
	filter := bson.M{"_id": notificationId, "receiver": receiverId}

	var notification entity.Notification
	err := collection.FindOne(ctx, filter).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Notification{}, ErrNotificationNotFound
		}
		return entity.Notification{}, err
	}

	return notification, nil
}

// List returns notifications newest first. A retention cutoff is always
// applied so rows past the 30-day window never surface, even before the
// store's TTL monitor removes them.
func (r *notificationRepository) List(ctx context.Context, filter entity.NotificationListFilter) ([]entity.Notification, error) {
	collection := r.db.Collection("notifications")

	bsonFilter := bson.M{
		"receiver":  filter.Receiver,
		"createdAt": bson.M{"$gt": time.Now().Add(-entity.NotificationRetention)},
	}
	if filter.UnreadOnly {
		bsonFilter["isRead"] = false
	}
	if filter.Type != "" {
		bsonFilter["type"] = filter.Type
	}
	if filter.Query != "" {
		bsonFilter["content"] = bson.M{"$regex": filter.Query, "$options": "i"}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := collection.Find(ctx, bsonFilter, opts)
	if err != nil {
		return nil, err
	}

	var notifications []entity.Notification
	err = cursor.All(ctx, &notifications)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) Count(ctx context.Context, receiverId string) (int64, error) {
	collection := r.db.Collection("notifications")
	return collection.CountDocuments(ctx, bson.M{"receiver": receiverId})
}

func (r *notificationRepository) UnreadCount(ctx context.Context, receiverId string) (int64, error) {
	collection := r.db.Collection("notifications")
	return collection.CountDocuments(ctx, bson.M{"receiver": receiverId, "isRead": false})
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationId, receiverId string) (entity.Notification, error) {
	collection := r.db.Collection("notifications")
	now := time.Now()

	filter := bson.M{"_id": notificationId, "receiver": receiverId}
	update := bson.M{
		"$set": bson.M{
			"isRead": true,
			"readAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var notification entity.Notification
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Notification{}, ErrNotificationNotFound
		}
		return entity.Notification{}, err
	}

	return notification, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, receiverId string) (int64, error) {
	collection := r.db.Collection("notifications")
	now := time.Now()

	result, err := collection.UpdateMany(ctx,
		bson.M{"receiver": receiverId, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": now}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *notificationRepository) Delete(ctx context.Context, notificationId, receiverId string) error {
	collection := r.db.Collection("notifications")
	result, err := collection.DeleteOne(ctx, bson.M{"_id": notificationId, "receiver": receiverId})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) DeleteAll(ctx context.Context, receiverId string) (int64, error) {
	collection := r.db.Collection("notifications")
	result, err := collection.DeleteMany(ctx, bson.M{"receiver": receiverId})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *notificationRepository) ClearUnread(ctx context.Context, receiverId string) (int64, error) {
	collection := r.db.Collection("notifications")
	result, err := collection.DeleteMany(ctx, bson.M{"receiver": receiverId, "isRead": false})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *notificationRepository) Stats(ctx context.Context, receiverId string) (entity.NotificationStats, error) {
	collection := r.db.Collection("notifications")

	total, err := collection.CountDocuments(ctx, bson.M{"receiver": receiverId})
	if err != nil {
		return entity.NotificationStats{}, err
	}
	unread, err := collection.CountDocuments(ctx, bson.M{"receiver": receiverId, "isRead": false})
	if err != nil {
		return entity.NotificationStats{}, err
	}

	matchStage := bson.D{{Key: "$match", Value: bson.D{{Key: "receiver", Value: receiverId}}}}
	groupStage := bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$type"},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}}

	cursor, err := collection.Aggregate(ctx, mongo.Pipeline{matchStage, groupStage})
	if err != nil {
		return entity.NotificationStats{}, err
	}
	defer cursor.Close(ctx)

	byType := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			Id    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return entity.NotificationStats{}, err
		}
		byType[row.Id] = row.Count
	}

	return entity.NotificationStats{
		Total:  total,
		Unread: unread,
		Read:   total - unread,
		ByType: byType,
	}, nil
}
