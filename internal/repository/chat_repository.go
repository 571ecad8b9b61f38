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

var ErrChatNotFound = errors.New("chat not found")

type ChatRepository interface {
	Get(ctx context.Context, chatId string) (entity.Chat, error)
	GetDirectChat(ctx context.Context, userId1, userId2 string) (entity.Chat, error)
	GetOrCreateDirectChat(ctx context.Context, userId1, userId2 string) (entity.Chat, error)
	Index(ctx context.Context, userId string) ([]entity.Chat, error)
	SetLastMessage(ctx context.Context, chatId, messageId string, at time.Time) error
	ClearLastMessage(ctx context.Context, chatId string) error
	Delete(ctx context.Context, chatId string) error
}

type chatRepository struct {
	db *mongo.Database
}

func NewChatRepository(db *mongo.Database) ChatRepository {
	return &chatRepository{
		db: db,
	}
}

func (r *chatRepository) Get(ctx context.Context, chatId string) (entity.Chat, error) {
	collection := r.db.Collection("chats")
	filter := bson.M{"_id": chatId}

	var chat entity.Chat
	err := collection.FindOne(ctx, filter).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Chat{}, ErrChatNotFound
		}
		return entity.Chat{}, err
	}

	return chat, nil
}

func (r *chatRepository) GetDirectChat(ctx context.Context, userId1, userId2 string) (entity.Chat, error) {
	collection := r.db.Collection("chats")
	filter := bson.M{
		"pairKey":     entity.DirectPairKey(userId1, userId2),
		"isGroupChat": false,
	}

	var chat entity.Chat
	err := collection.FindOne(ctx, filter).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Chat{}, ErrChatNotFound
		}
		return entity.Chat{}, err
	}

	return chat, nil
}

// GetOrCreateDirectChat upserts on the canonical pair key, so two concurrent
// first-sends between the same pair converge on a single conversation.
func (r *chatRepository) GetOrCreateDirectChat(ctx context.Context, userId1, userId2 string) (entity.Chat, error) {
	collection := r.db.Collection("chats")
	now := time.Now()

	filter := bson.M{
		"pairKey":     entity.DirectPairKey(userId1, userId2),
		"isGroupChat": false,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":          uuid.New().String(),
			"participants": []string{userId1, userId2},
			"isGroupChat":  false,
			"pairKey":      entity.DirectPairKey(userId1, userId2),
			"createdAt":    now,
		},
		"$set": bson.M{
			"updatedAt": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var chat entity.Chat
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&chat)
	if err != nil {
		return entity.Chat{}, err
	}

	return chat, nil
}

// Index returns all chats the user participates in, most recent activity first.
func (r *chatRepository) Index(ctx context.Context, userId string) ([]entity.Chat, error) {
	collection := r.db.Collection("chats")
	filter := bson.M{"participants": userId}

	opts := options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var chats []entity.Chat
	err = cursor.All(ctx, &chats)
	if err != nil {
		return nil, err
	}

	return chats, nil
}

func (r *chatRepository) SetLastMessage(ctx context.Context, chatId, messageId string, at time.Time) error {
	collection := r.db.Collection("chats")
	filter := bson.M{"_id": chatId}
	update := bson.M{
		"$set": bson.M{
			"lastMessage":   messageId,
			"lastMessageAt": at,
			"updatedAt":     at,
		},
	}

	_, err := collection.UpdateOne(ctx, filter, update)
	return err
}

func (r *chatRepository) ClearLastMessage(ctx context.Context, chatId string) error {
	collection := r.db.Collection("chats")
	filter := bson.M{"_id": chatId}
	update := bson.M{
		"$set": bson.M{"updatedAt": time.Now()},
		"$unset": bson.M{
			"lastMessage":   "",
			"lastMessageAt": "",
		},
	}

	_, err := collection.UpdateOne(ctx, filter, update)
	return err
}

func (r *chatRepository) Delete(ctx context.Context, chatId string) error {
	collection := r.db.Collection("chats")
	filter := bson.M{"_id": chatId}
	_, err := collection.DeleteOne(ctx, filter)
	return err
}
