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

var ErrMessageNotFound = errors.New("message not found")

type MessageRepository interface {
	Get(ctx context.Context, messageId string) (entity.Message, error)
	Create(ctx context.Context, message entity.Message) (string, error)
	CountByChat(ctx context.Context, chatId string) (int64, error)
	GetByChatId(ctx context.Context, chatId string, limit, offset int) ([]entity.Message, error)
	MarkRead(ctx context.Context, messageId string) (entity.Message, error)
	MarkChatRead(ctx context.Context, chatId string) (int64, error)
	Delete(ctx context.Context, messageId string) error
	DeleteByChat(ctx context.Context, chatId string) (int64, error)
	Search(ctx context.Context, chatId, query string) ([]entity.Message, error)
}

type messageRepository struct {
	db *mongo.Database
}

func NewMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) Get(ctx context.Context, messageId string) (entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{"_id": messageId}

	var message entity.Message
	err := collection.FindOne(ctx, filter).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Message{}, ErrMessageNotFound
		}
		return entity.Message{}, err
	}

	return message, nil
}

func (r *messageRepository) Create(ctx context.Context, message entity.Message) (string, error) {
	collection := r.db.Collection("messages")
	message.Id = uuid.New().String()
	if message.SentAt.IsZero() {
		message.SentAt = time.Now()
	}

	_, err := collection.InsertOne(ctx, message)
	if err != nil {
		return "", err
	}

	return message.Id, nil
}

func (r *messageRepository) CountByChat(ctx context.Context, chatId string) (int64, error) {
	collection := r.db.Collection("messages")
	return collection.CountDocuments(ctx, bson.M{"chatId": chatId})
}

func (r *messageRepository) GetByChatId(ctx context.Context, chatId string, limit, offset int) ([]entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{"chatId": chatId}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	opts.SetSort(bson.D{{Key: "sentAt", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var messages []entity.Message
	err = cursor.All(ctx, &messages)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, messageId string) (entity.Message, error) {
	collection := r.db.Collection("messages")
	now := time.Now()

	filter := bson.M{"_id": messageId}
	update := bson.M{
		"$set": bson.M{
			"read":   true,
			"readAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var message entity.Message
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Message{}, ErrMessageNotFound
		}
		return entity.Message{}, err
	}

	return message, nil
}

func (r *messageRepository) MarkChatRead(ctx context.Context, chatId string) (int64, error) {
	collection := r.db.Collection("messages")
	now := time.Now()

	result, err := collection.UpdateMany(ctx,
		bson.M{"chatId": chatId, "read": false},
		bson.M{"$set": bson.M{"read": true, "readAt": now}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *messageRepository) Delete(ctx context.Context, messageId string) error {
	collection := r.db.Collection("messages")
	filter := bson.M{"_id": messageId}
	_, err := collection.DeleteOne(ctx, filter)
	return err
}

func (r *messageRepository) DeleteByChat(ctx context.Context, chatId string) (int64, error) {
	collection := r.db.Collection("messages")
	result, err := collection.DeleteMany(ctx, bson.M{"chatId": chatId})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *messageRepository) Search(ctx context.Context, chatId, query string) ([]entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{
		"chatId":  chatId,
		"message": bson.M{"$regex": query, "$options": "i"},
	}

	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: -1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var messages []entity.Message
	err = cursor.All(ctx, &messages)
	if err != nil {
		return nil, err
	}

	return messages, nil
}
