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

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	Get(ctx context.Context, userId string) (entity.User, error)
	GetByEmail(ctx context.Context, email string) (entity.User, error)
	Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error)
	Create(ctx context.Context, user entity.User) (string, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	// Presence state (durable twin of the in-memory registry)
	SetPresence(ctx context.Context, userId, status string, isOnline bool) error
	TouchLastSeen(ctx context.Context, userId string) error
	GetOnlineUsers(ctx context.Context, excludeUserId string) ([]entity.User, error)
	MarkInactiveOffline(ctx context.Context, cutoff time.Time) (int64, error)

	// Social graph, atomic set operations
	AddFollower(ctx context.Context, userId, followerId string) error
	RemoveFollower(ctx context.Context, userId, followerId string) error
	BlockUser(ctx context.Context, userId, blockedId string) error
	UnblockUser(ctx context.Context, userId, blockedId string) error
}

type userRepository struct {
	db *mongo.Database
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) Get(ctx context.Context, userId string) (entity.User, error) {
	collection := r.db.Collection("users")
	filter := bson.M{"_id": userId}

	var user entity.User
	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.User{}, ErrUserNotFound
		}
		return entity.User{}, err
	}

	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (entity.User, error) {
	collection := r.db.Collection("users")
	filter := bson.M{"email": email}

	var user entity.User
	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.User{}, ErrUserNotFound
		}
		return entity.User{}, err
	}

	return user, nil
}

func (r *userRepository) Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error) {
	collection := r.db.Collection("users")

	bsonFilter := bson.M{}
	if len(filter.Ids) > 0 {
		bsonFilter["_id"] = bson.M{"$in": filter.Ids}
	}

	cursor, err := collection.Find(ctx, bsonFilter)
	if err != nil {
		return nil, err
	}

	var users []entity.User
	err = cursor.All(ctx, &users)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user entity.User) (string, error) {
	collection := r.db.Collection("users")
	user.Id = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	if user.Status == "" {
		user.Status = entity.StatusOffline
	}

	_, err := collection.InsertOne(ctx, user)
	if err != nil {
		return "", err
	}

	return user.Id, nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	count, err := r.db.Collection("users").CountDocuments(ctx, bson.M{"email": email})
	return count > 0, err
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	count, err := r.db.Collection("users").CountDocuments(ctx, bson.M{"username": username})
	return count > 0, err
}

func (r *userRepository) SetPresence(ctx context.Context, userId, status string, isOnline bool) error {
	collection := r.db.Collection("users")
	filter := bson.M{"_id": userId}
	update := bson.M{
		"$set": bson.M{
			"status":   status,
			"isOnline": isOnline,
			"lastSeen": time.Now(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) TouchLastSeen(ctx context.Context, userId string) error {
	collection := r.db.Collection("users")
	_, err := collection.UpdateOne(ctx, bson.M{"_id": userId}, bson.M{
		"$set": bson.M{"lastSeen": time.Now()},
	})
	return err
}

func (r *userRepository) GetOnlineUsers(ctx context.Context, excludeUserId string) ([]entity.User, error) {
	collection := r.db.Collection("users")
	filter := bson.M{
		"isOnline": true,
		"isBanned": bson.M{"$ne": true},
	}
	if excludeUserId != "" {
		filter["_id"] = bson.M{"$ne": excludeUserId}
	}

	opts := options.Find().SetSort(bson.D{{Key: "lastSeen", Value: -1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var users []entity.User
	err = cursor.All(ctx, &users)
	if err != nil {
		return nil, err
	}

	return users, nil
}

// MarkInactiveOffline demotes users whose lastSeen is older than cutoff but
// are still durably marked online. Returns the number of users demoted.
func (r *userRepository) MarkInactiveOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	collection := r.db.Collection("users")
	filter := bson.M{
		"isOnline": true,
		"lastSeen": bson.M{"$lt": cutoff},
	}
	update := bson.M{
		"$set": bson.M{
			"isOnline": false,
			"status":   entity.StatusOffline,
		},
	}

	result, err := collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *userRepository) AddFollower(ctx context.Context, userId, followerId string) error {
	collection := r.db.Collection("users")

	_, err := collection.UpdateOne(ctx, bson.M{"_id": userId}, bson.M{
		"$addToSet": bson.M{"followers": followerId},
	})
	if err != nil {
		return err
	}
	_, err = collection.UpdateOne(ctx, bson.M{"_id": followerId}, bson.M{
		"$addToSet": bson.M{"following": userId},
	})
	return err
}

func (r *userRepository) RemoveFollower(ctx context.Context, userId, followerId string) error {
	collection := r.db.Collection("users")

	_, err := collection.UpdateOne(ctx, bson.M{"_id": userId}, bson.M{
		"$pull": bson.M{"followers": followerId},
	})
	if err != nil {
		return err
	}
	_, err = collection.UpdateOne(ctx, bson.M{"_id": followerId}, bson.M{
		"$pull": bson.M{"following": userId},
	})
	return err
}

func (r *userRepository) BlockUser(ctx context.Context, userId, blockedId string) error {
	_, err := r.db.Collection("users").UpdateOne(ctx, bson.M{"_id": userId}, bson.M{
		"$addToSet": bson.M{"blocked": blockedId},
	})
	return err
}

func (r *userRepository) UnblockUser(ctx context.Context, userId, blockedId string) error {
	_, err := r.db.Collection("users").UpdateOne(ctx, bson.M{"_id": userId}, bson.M{
		"$pull": bson.M{"blocked": blockedId},
	})
	return err
}
