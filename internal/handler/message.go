package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DarshikR/Chat-App/internal/middleware"
	"github.com/DarshikR/Chat-App/internal/service"
	apperrors "github.com/DarshikR/Chat-App/pkg/errors"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type MessageHandler struct {
	messageService service.MessageService
	log            logger.Logger
}

func NewMessageHandler(messageService service.MessageService, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		log:            log,
	}
}

// History returns the conversation between the caller and :peerId,
// oldest first.
func (h *MessageHandler) History(c *gin.Context) {
	selfID := c.GetString(middleware.ContextUserID)
	peerID := c.Param("peerId")

	messages, err := h.messageService.History(c.Request.Context(), selfID, peerID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"` // base64
}

func (h *MessageHandler) Send(c *gin.Context) {
	selfID := c.GetString(middleware.ContextUserID)
	peerID := c.Param("peerId")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageService.Send(c.Request.Context(), selfID, peerID, req.Text, req.Image)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, message)
}
