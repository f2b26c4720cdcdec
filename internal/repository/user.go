package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/DarshikR/Chat-App/internal/domain"
	apperrors "github.com/DarshikR/Chat-App/pkg/errors"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	ListContacts(ctx context.Context, selfID string) ([]*domain.Contact, error)
}

type userRepository struct {
	users    *mongo.Collection
	messages *mongo.Collection
	log      logger.Logger
}

func NewUserRepository(db *mongo.Database, log logger.Logger) UserRepository {
	return &userRepository{
		users:    db.Collection("users"),
		messages: db.Collection("messages"),
		log:      log,
	}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	_, err := r.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.ErrUserAlreadyExists
	}
	if err != nil {
		r.log.Error("Failed to create user", "error", err)
		return err
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	var user domain.User
	err = r.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		r.log.Error("Failed to get user", "error", err, "id", id)
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		r.log.Error("Failed to get user by email", "error", err)
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"displayName": user.DisplayName,
		"avatarUrl":   user.AvatarURL,
		"updatedAt":   user.UpdatedAt,
	}}

	res, err := r.users.UpdateByID(ctx, user.ID, update)
	if err != nil {
		r.log.Error("Failed to update user", "error", err, "id", user.ID.Hex())
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

// ListContacts returns every other user, each annotated with the most
// recent message exchanged with selfID. A single aggregation with a
// correlated $lookup replaces the per-user fan-out query.
func (r *userRepository) ListContacts(ctx context.Context, selfID string) ([]*domain.Contact, error) {
	selfOID, err := primitive.ObjectIDFromHex(selfID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$ne": selfOID}}}},
		{{Key: "$lookup", Value: bson.M{
			"from": r.messages.Name(),
			"let":  bson.M{"uid": bson.M{"$toString": "$_id"}},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$or": bson.A{
					bson.M{"$and": bson.A{
						bson.M{"$eq": bson.A{"$senderId", "$$uid"}},
						bson.M{"$eq": bson.A{"$receiverId", selfID}},
					}},
					bson.M{"$and": bson.A{
						bson.M{"$eq": bson.A{"$senderId", selfID}},
						bson.M{"$eq": bson.A{"$receiverId", "$$uid"}},
					}},
				}}}},
				bson.M{"$sort": bson.M{"createdAt": -1}},
				bson.M{"$limit": 1},
			},
			"as": "lastMessage",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$lastMessage",
			"preserveNullAndEmptyArrays": true,
		}}},
		{{Key: "$sort", Value: bson.M{"displayName": 1}}},
	}

	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		r.log.Error("Failed to aggregate contacts", "error", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var contacts []*domain.Contact
	if err := cursor.All(ctx, &contacts); err != nil {
		r.log.Error("Failed to decode contacts", "error", err)
		return nil, err
	}

	return contacts, nil
}
