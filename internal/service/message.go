package service

import (
	"context"
	"strings"

	"github.com/DarshikR/Chat-App/internal/domain"
	"github.com/DarshikR/Chat-App/internal/repository"
	apperrors "github.com/DarshikR/Chat-App/pkg/errors"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

// Pusher delivers events to a user's live connection, if any. Delivery
// is best-effort; implementations never block and never report errors.
type Pusher interface {
	PushMessage(userID string, msg *domain.Message)
}

type MessageService interface {
	// Send validates, uploads any image, persists the message and pushes
	// it to the receiver's live connection. The persisted message is
	// returned regardless of delivery outcome.
	Send(ctx context.Context, senderID, receiverID, text, image string) (*domain.Message, error)
	// History returns the conversation between self and peer, oldest
	// first.
	History(ctx context.Context, selfID, peerID string) ([]*domain.Message, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	media       MediaService
	pusher      Pusher
	log         logger.Logger
}

func NewMessageService(messageRepo repository.MessageRepository, media MediaService, pusher Pusher, log logger.Logger) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		media:       media,
		pusher:      pusher,
		log:         log,
	}
}

func (s *messageService) Send(ctx context.Context, senderID, receiverID, text, image string) (*domain.Message, error) {
	text = strings.TrimSpace(text)

	if text == "" && image == "" {
		return nil, apperrors.ErrEmptyMessage
	}
	if image != "" && domain.ImagePayloadBytes(image) > domain.MaxImageBytes {
		return nil, apperrors.ErrPayloadTooLarge
	}

	// The image goes to object storage first; a failed upload aborts the
	// whole send so no partial message is persisted.
	imageURL := ""
	if image != "" {
		url, err := s.media.UploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		imageURL = url
	}

	message := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      imageURL,
	}

	if err := s.messageRepo.Insert(ctx, message); err != nil {
		return nil, err
	}

	// Best-effort live delivery. An offline receiver is not an error;
	// they observe the message on their next history fetch.
	s.pusher.PushMessage(receiverID, message)

	return message, nil
}

func (s *messageService) History(ctx context.Context, selfID, peerID string) ([]*domain.Message, error) {
	return s.messageRepo.Conversation(ctx, selfID, peerID)
}
