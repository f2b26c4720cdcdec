package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DarshikR/Chat-App/internal/domain"
	apperrors "github.com/DarshikR/Chat-App/pkg/errors"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type memMessageRepo struct {
	messages []*domain.Message
	clock    time.Time
	failNext error
}

func (m *memMessageRepo) Insert(_ context.Context, message *domain.Message) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	if m.clock.IsZero() {
		m.clock = time.Now()
	}
	m.clock = m.clock.Add(time.Millisecond)
	message.ID = primitive.NewObjectID()
	message.CreatedAt = m.clock
	m.messages = append(m.messages, message)
	return nil
}

func (m *memMessageRepo) Conversation(_ context.Context, a, b string) ([]*domain.Message, error) {
	var out []*domain.Message
	for _, msg := range m.messages {
		if (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a) {
			out = append(out, msg)
		}
	}
	return out, nil
}

type fakeMedia struct {
	url     string
	err     error
	uploads int
}

func (f *fakeMedia) UploadImage(_ context.Context, _ string) (string, error) {
	f.uploads++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type recordingPusher struct {
	pushes []struct {
		userID string
		msg    *domain.Message
	}
}

func (p *recordingPusher) PushMessage(userID string, msg *domain.Message) {
	p.pushes = append(p.pushes, struct {
		userID string
		msg    *domain.Message
	}{userID, msg})
}

func newTestMessageService() (MessageService, *memMessageRepo, *fakeMedia, *recordingPusher) {
	repo := &memMessageRepo{}
	media := &fakeMedia{url: "https://storage.example/img.png"}
	pusher := &recordingPusher{}
	svc := NewMessageService(repo, media, pusher, logger.NewNop())
	return svc, repo, media, pusher
}

// base64Blob returns a base64 string whose decoded payload is roughly
// n bytes.
func base64Blob(n int) string {
	return strings.Repeat("A", n*4/3)
}

func TestSendTextOnly(t *testing.T) {
	t.Parallel()

	svc, _, media, pusher := newTestMessageService()

	msg, err := svc.Send(context.Background(), "alice", "bob", "hello", "")
	require.NoError(t, err)
	require.Equal(t, "alice", msg.SenderID)
	require.Equal(t, "bob", msg.ReceiverID)
	require.Equal(t, "hello", msg.Text)
	require.Empty(t, msg.Image)
	require.False(t, msg.ID.IsZero())
	require.False(t, msg.CreatedAt.IsZero())
	require.Zero(t, media.uploads)

	require.Len(t, pusher.pushes, 1)
	require.Equal(t, "bob", pusher.pushes[0].userID)
	require.Same(t, msg, pusher.pushes[0].msg)
}

func TestSendImageOnly(t *testing.T) {
	t.Parallel()

	svc, _, media, _ := newTestMessageService()

	msg, err := svc.Send(context.Background(), "alice", "bob", "", base64Blob(1024))
	require.NoError(t, err)
	require.Empty(t, msg.Text)
	require.Equal(t, media.url, msg.Image)
	require.Equal(t, 1, media.uploads)
}

func TestSendTextAndImage(t *testing.T) {
	t.Parallel()

	svc, _, media, _ := newTestMessageService()

	msg, err := svc.Send(context.Background(), "alice", "bob", "look", base64Blob(1024))
	require.NoError(t, err)
	require.Equal(t, "look", msg.Text)
	require.Equal(t, media.url, msg.Image)
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	svc, repo, _, pusher := newTestMessageService()

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.Send(context.Background(), "alice", "bob", text, "")
		require.ErrorIs(t, err, apperrors.ErrEmptyMessage)
	}

	require.Empty(t, repo.messages)
	require.Empty(t, pusher.pushes)
}

func TestSendImageSizeCeiling(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestMessageService()

	// A 4MB-equivalent payload is accepted.
	_, err := svc.Send(context.Background(), "alice", "bob", "", base64Blob(4*1024*1024))
	require.NoError(t, err)

	// A 6MB-equivalent payload is rejected before any upload or write.
	_, err = svc.Send(context.Background(), "alice", "bob", "", base64Blob(6*1024*1024))
	require.ErrorIs(t, err, apperrors.ErrPayloadTooLarge)
}

func TestSendOversizedImageNeverReachesStorage(t *testing.T) {
	t.Parallel()

	svc, repo, media, _ := newTestMessageService()

	_, err := svc.Send(context.Background(), "alice", "bob", "", base64Blob(6*1024*1024))
	require.ErrorIs(t, err, apperrors.ErrPayloadTooLarge)
	require.Zero(t, media.uploads)
	require.Empty(t, repo.messages)
}

func TestSendUploadFailureAbortsWholeSend(t *testing.T) {
	t.Parallel()

	svc, repo, media, pusher := newTestMessageService()
	media.err = apperrors.ErrUploadFailed

	_, err := svc.Send(context.Background(), "alice", "bob", "caption", base64Blob(1024))
	require.ErrorIs(t, err, apperrors.ErrUploadFailed)

	// No partial message persisted, nothing pushed.
	require.Empty(t, repo.messages)
	require.Empty(t, pusher.pushes)
}

func TestSendPersistFailureNotPushed(t *testing.T) {
	t.Parallel()

	svc, repo, _, pusher := newTestMessageService()
	repo.failNext = errors.New("write concern")

	_, err := svc.Send(context.Background(), "alice", "bob", "hi", "")
	require.Error(t, err)
	require.Empty(t, pusher.pushes)
}

func TestSendTimestampsMonotonicPerPair(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestMessageService()

	var prev time.Time
	for i := 0; i < 10; i++ {
		msg, err := svc.Send(context.Background(), "alice", "bob", "m", "")
		require.NoError(t, err)
		require.True(t, msg.CreatedAt.After(prev))
		prev = msg.CreatedAt
	}
}

func TestSendToOfflineRecipientStillReturnsMessage(t *testing.T) {
	t.Parallel()

	repo := &memMessageRepo{}
	svc := NewMessageService(repo, &fakeMedia{}, &recordingPusher{}, logger.NewNop())

	// The pusher silently drops for offline users; send still succeeds.
	msg, err := svc.Send(context.Background(), "alice", "offline", "hello", "")
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Len(t, repo.messages, 1)
}

func TestHistoryRoundTripBothDirections(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestMessageService()

	sent, err := svc.Send(context.Background(), "x", "y", "ping", "")
	require.NoError(t, err)

	asX, err := svc.History(context.Background(), "x", "y")
	require.NoError(t, err)
	asY, err := svc.History(context.Background(), "y", "x")
	require.NoError(t, err)

	require.Len(t, asX, 1)
	require.Len(t, asY, 1)
	require.Equal(t, sent.ID, asX[0].ID)
	require.Equal(t, sent.ID, asY[0].ID)
	require.Equal(t, sent.Text, asY[0].Text)
	require.Equal(t, sent.CreatedAt, asY[0].CreatedAt)
}
