package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DarshikR/Chat-App/internal/middleware"
	"github.com/DarshikR/Chat-App/internal/service"
	apperrors "github.com/DarshikR/Chat-App/pkg/errors"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type UserHandler struct {
	userService service.UserService
	log         logger.Logger
}

func NewUserHandler(userService service.UserService, log logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

// Contacts returns every other user annotated with the last message
// exchanged with the caller, for the sidebar.
func (h *UserHandler) Contacts(c *gin.Context) {
	selfID := c.GetString(middleware.ContextUserID)

	contacts, err := h.userService.Contacts(c.Request.Context(), selfID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, contacts)
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"` // base64
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	selfID := c.GetString(middleware.ContextUserID)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), selfID, req.DisplayName, req.Avatar)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, user)
}
