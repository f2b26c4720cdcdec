package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DarshikR/Chat-App/internal/domain"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type MessageRepository interface {
	// Insert assigns the message id and server timestamp. This is the
	// authoritative ordering point for a conversation.
	Insert(ctx context.Context, message *domain.Message) error
	// Conversation returns all messages between a and b, oldest first.
	Conversation(ctx context.Context, a, b string) ([]*domain.Message, error)
}

type messageRepository struct {
	messages *mongo.Collection
	log      logger.Logger
}

func NewMessageRepository(db *mongo.Database, log logger.Logger) MessageRepository {
	return &messageRepository{
		messages: db.Collection("messages"),
		log:      log,
	}
}

func (r *messageRepository) Insert(ctx context.Context, message *domain.Message) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()

	_, err := r.messages.InsertOne(ctx, message)
	if err != nil {
		r.log.Error("Failed to insert message", "error", err)
		return err
	}

	return nil
}

func (r *messageRepository) Conversation(ctx context.Context, a, b string) ([]*domain.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"senderId": a, "receiverId": b},
		bson.M{"senderId": b, "receiverId": a},
	}}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		r.log.Error("Failed to query conversation", "error", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*domain.Message
	if err := cursor.All(ctx, &messages); err != nil {
		r.log.Error("Failed to decode conversation", "error", err)
		return nil, err
	}

	return messages, nil
}
