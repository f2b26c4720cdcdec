package repository

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/DarshikR/Chat-App/pkg/logger"
)

type Repositories struct {
	User      UserRepository
	Message   MessageRepository
	RateLimit RateLimitRepository
}

func NewRepositories(db *mongo.Database, redis *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db, log),
		Message:   NewMessageRepository(db, log),
		RateLimit: NewRateLimitRepository(redis, log),
	}
}
