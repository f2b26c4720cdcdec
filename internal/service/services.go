package service

import (
	"github.com/DarshikR/Chat-App/internal/config"
	"github.com/DarshikR/Chat-App/internal/repository"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type Services struct {
	Auth      AuthService
	User      UserService
	Media     MediaService
	Message   MessageService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, pusher Pusher, cfg *config.Config, log logger.Logger) *Services {
	media := NewMediaService(cfg.Storage, log)

	return &Services{
		Auth:      NewAuthService(repos.User, cfg.JWT, log),
		User:      NewUserService(repos.User, media, log),
		Media:     media,
		Message:   NewMessageService(repos.Message, media, pusher, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
	}
}
