package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/DarshikR/Chat-App/internal/service"
	"github.com/DarshikR/Chat-App/internal/ws"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO restrict origins once the frontend host is fixed
	},
}

type WebSocketHandler struct {
	authService service.AuthService
	hub         *ws.Hub
	log         logger.Logger
}

func NewWebSocketHandler(authService service.AuthService, hub *ws.Hub, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		authService: authService,
		hub:         hub,
		log:         log,
	}
}

// Handle upgrades the connection and binds it to the authenticated user
// in the hub. The token travels as a query parameter because browsers
// cannot set headers on websocket dials.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := ws.NewClient(user.ID.Hex(), conn, h.hub, h.log)
	h.hub.Register(user.ID.Hex(), client)
	client.Serve()
}
