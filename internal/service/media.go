package service

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/DarshikR/Chat-App/internal/config"
	apperrors "github.com/DarshikR/Chat-App/pkg/errors"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

// MediaService uploads base64 image payloads to the external object
// storage and returns the stable URL it assigns.
type MediaService interface {
	UploadImage(ctx context.Context, encoded string) (string, error)
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

type mediaService struct {
	client *resty.Client
	cfg    config.StorageConfig
	log    logger.Logger
}

func NewMediaService(cfg config.StorageConfig, log logger.Logger) MediaService {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)

	return &mediaService{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

func (s *mediaService) UploadImage(ctx context.Context, encoded string) (string, error) {
	req := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"file": encoded}).
		SetResult(&uploadResponse{})

	if s.cfg.APIKey != "" {
		req.SetHeader("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := req.Post(s.cfg.UploadURL)
	if err != nil {
		s.log.Error("Image upload request failed", "error", err)
		return "", apperrors.ErrUploadFailed
	}
	if resp.IsError() {
		s.log.Error("Image upload rejected by storage", "status", resp.StatusCode())
		return "", apperrors.ErrUploadFailed
	}

	result, ok := resp.Result().(*uploadResponse)
	if !ok || result.SecureURL == "" {
		s.log.Error("Image upload returned no URL")
		return "", apperrors.ErrUploadFailed
	}

	return result.SecureURL, nil
}
