package handler

import (
	"github.com/DarshikR/Chat-App/internal/service"
	"github.com/DarshikR/Chat-App/internal/ws"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Message   *MessageHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *ws.Hub, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(),
		Auth:      NewAuthHandler(services.Auth, log),
		User:      NewUserHandler(services.User, log),
		Message:   NewMessageHandler(services.Message, log),
		WebSocket: NewWebSocketHandler(services.Auth, hub, log),
	}
}
