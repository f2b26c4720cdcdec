package service

import (
	"context"
	"strings"

	"github.com/DarshikR/Chat-App/internal/domain"
	"github.com/DarshikR/Chat-App/internal/repository"
	apperrors "github.com/DarshikR/Chat-App/pkg/errors"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type UserService interface {
	Contacts(ctx context.Context, selfID string) ([]*domain.Contact, error)
	UpdateProfile(ctx context.Context, userID string, displayName, avatarBase64 string) (*domain.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	media    MediaService
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, media MediaService, log logger.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		media:    media,
		log:      log,
	}
}

func (s *userService) Contacts(ctx context.Context, selfID string) ([]*domain.Contact, error) {
	return s.userRepo.ListContacts(ctx, selfID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, displayName, avatarBase64 string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if displayName = strings.TrimSpace(displayName); displayName != "" {
		if len(displayName) > 100 {
			return nil, apperrors.NewAPIError("display name is too long (max 100 characters)", 400)
		}
		user.DisplayName = displayName
	}

	if avatarBase64 != "" {
		if domain.ImagePayloadBytes(avatarBase64) > domain.MaxImageBytes {
			return nil, apperrors.ErrPayloadTooLarge
		}
		url, err := s.media.UploadImage(ctx, avatarBase64)
		if err != nil {
			return nil, err
		}
		user.AvatarURL = url
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}
