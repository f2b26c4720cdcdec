package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DarshikR/Chat-App/internal/domain"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type fakeBackend struct {
	mu        sync.Mutex
	histories map[string][]*domain.Message
	gates     map[string]chan struct{}
	histErr   error
	sent      []*domain.Message
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		histories: make(map[string][]*domain.Message),
		gates:     make(map[string]chan struct{}),
	}
}

func (b *fakeBackend) Contacts(ctx context.Context) ([]*domain.Contact, error) {
	return nil, nil
}

func (b *fakeBackend) History(ctx context.Context, peerID string) ([]*domain.Message, error) {
	b.mu.Lock()
	gate := b.gates[peerID]
	err := b.histErr
	msgs := b.histories[peerID]
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (b *fakeBackend) SendMessage(ctx context.Context, peerID, text, image string) (*domain.Message, error) {
	msg := &domain.Message{
		ID:         primitive.NewObjectID(),
		SenderID:   "self",
		ReceiverID: peerID,
		Text:       text,
		Image:      image,
		CreatedAt:  time.Now(),
	}
	b.mu.Lock()
	b.sent = append(b.sent, msg)
	b.mu.Unlock()
	return msg, nil
}

type fakeStream struct {
	mu         sync.Mutex
	handlers   map[string]func(domain.Event)
	typing     []string
	stopTyping []string
}

func newFakeStream() *fakeStream {
	return &fakeStream{handlers: make(map[string]func(domain.Event))}
}

func (f *fakeStream) On(event string, fn func(domain.Event)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = fn
}

func (f *fakeStream) Off(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, event)
}

func (f *fakeStream) SendTyping(to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, to)
	return nil
}

func (f *fakeStream) SendStopTyping(to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopTyping = append(f.stopTyping, to)
	return nil
}

func (f *fakeStream) emit(event domain.Event) {
	f.mu.Lock()
	fn := f.handlers[event.Name]
	f.mu.Unlock()
	if fn != nil {
		fn(event)
	}
}

func (f *fakeStream) handlerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeStream) stopTypingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stopTyping)
}

func msgAt(id primitive.ObjectID, sender, receiver, text string, at time.Time) *domain.Message {
	return &domain.Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       text,
		CreatedAt:  at,
	}
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.State() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSelectLoadsHistory(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	now := time.Now()
	backend.histories["bob"] = []*domain.Message{
		msgAt(primitive.NewObjectID(), "bob", "self", "hey", now.Add(-time.Minute)),
		msgAt(primitive.NewObjectID(), "self", "bob", "hi", now),
	}

	s := NewSession("self", backend, newFakeStream(), logger.NewNop())
	s.Select("bob")

	require.Equal(t, StateLoadingHistory, s.State())
	waitForState(t, s, StateActive)

	history := s.History()
	require.Len(t, history, 2)
	require.Equal(t, "hey", history[0].Text)
	require.Equal(t, "hi", history[1].Text)
}

func TestPushDuringLoadIsBufferedAndMerged(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()
	now := time.Now()

	fetched := msgAt(primitive.NewObjectID(), "bob", "self", "older", now.Add(-time.Minute))
	backend.histories["bob"] = []*domain.Message{fetched}

	gate := make(chan struct{})
	backend.gates["bob"] = gate

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("bob")

	// A push lands in the race window between fetch-start and
	// fetch-complete.
	pushed := msgAt(primitive.NewObjectID(), "bob", "self", "newer", now)
	stream.emit(domain.NewMessageEvent(pushed))
	require.Equal(t, StateLoadingHistory, s.State())
	require.Empty(t, s.History())

	close(gate)
	waitForState(t, s, StateActive)

	history := s.History()
	require.Len(t, history, 2)
	require.Equal(t, "older", history[0].Text)
	require.Equal(t, "newer", history[1].Text)
}

func TestStaleHistoryResultDiscardedOnSwitch(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()

	backend.histories["alice"] = []*domain.Message{
		msgAt(primitive.NewObjectID(), "alice", "self", "from alice", time.Now()),
	}
	aliceGate := make(chan struct{})
	backend.gates["alice"] = aliceGate

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("alice")

	// Switch to bob before alice's fetch resolves.
	s.Select("bob")
	waitForState(t, s, StateActive)
	require.Empty(t, s.History())

	// Alice's fetch resolves late; its result must not leak into bob's
	// view.
	close(aliceGate)
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, "bob", s.Peer())
	require.Equal(t, StateActive, s.State())
	require.Empty(t, s.History())
}

func TestExactlyOneSubscriptionAcrossSwitches(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()

	s := NewSession("self", backend, stream, logger.NewNop())
	for _, peer := range []string{"a", "b", "c", "a"} {
		s.Select(peer)
	}
	waitForState(t, s, StateActive)

	// One handler per event, not one per Select: newMessage, typing,
	// stopTyping, plus the account-wide presence handler.
	require.Equal(t, 4, stream.handlerCount())

	// A single push appends a single message.
	pushed := msgAt(primitive.NewObjectID(), "a", "self", "once", time.Now())
	stream.emit(domain.NewMessageEvent(pushed))
	require.Len(t, s.History(), 1)
}

func TestDeselectTearsDownSubscription(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("bob")
	waitForState(t, s, StateActive)

	s.Deselect()
	require.Equal(t, StateNoConversation, s.State())
	// Conversation handlers are gone; only the account-wide presence
	// handler remains.
	require.Equal(t, 1, stream.handlerCount())
	require.Empty(t, s.History())
}

func TestSendAppendsOnlyServerMessage(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("bob")
	waitForState(t, s, StateActive)

	msg, err := s.Send(context.Background(), "hello", "")
	require.NoError(t, err)

	history := s.History()
	require.Len(t, history, 1)
	require.Equal(t, msg.ID, history[0].ID)

	// A successful send emits an explicit stop-typing.
	require.Equal(t, 1, stream.stopTypingCount())
}

func TestSendDuringHistoryLoadSurvivesMerge(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()
	now := time.Now()

	fetched := msgAt(primitive.NewObjectID(), "bob", "self", "older", now.Add(-time.Minute))
	backend.histories["bob"] = []*domain.Message{fetched}

	gate := make(chan struct{})
	backend.gates["bob"] = gate

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("bob")

	// The user sends before the history fetch resolves. The fetched
	// snapshot predates the send, so the sent message must not be lost
	// when the fetch result lands.
	msg, err := s.Send(context.Background(), "sent while loading", "")
	require.NoError(t, err)
	require.Equal(t, StateLoadingHistory, s.State())

	close(gate)
	waitForState(t, s, StateActive)

	history := s.History()
	require.Len(t, history, 2)
	require.Equal(t, "older", history[0].Text)
	require.Equal(t, msg.ID, history[1].ID)
	require.Equal(t, "sent while loading", history[1].Text)
}

func TestPresenceUpdatesOnlineSet(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()

	s := NewSession("self", backend, stream, logger.NewNop())

	// Presence flows without any conversation selected.
	stream.emit(domain.PresenceEvent([]string{"self", "bob"}))
	require.True(t, s.Online("bob"))
	require.False(t, s.Online("carol"))
	require.ElementsMatch(t, []string{"self", "bob"}, s.OnlineUsers())

	// Each broadcast is the full set; a user missing from it is offline.
	stream.emit(domain.PresenceEvent([]string{"self", "carol"}))
	require.False(t, s.Online("bob"))
	require.True(t, s.Online("carol"))
}

func TestPresenceSurvivesConversationLifecycle(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("bob")
	waitForState(t, s, StateActive)
	s.Deselect()

	stream.emit(domain.PresenceEvent([]string{"bob"}))
	require.True(t, s.Online("bob"))
}

func TestSendWithoutConversation(t *testing.T) {
	t.Parallel()

	s := NewSession("self", newFakeBackend(), newFakeStream(), logger.NewNop())
	_, err := s.Send(context.Background(), "hello", "")
	require.ErrorIs(t, err, ErrNoConversation)
}

func TestTypingIdleTimeoutEmitsStopTyping(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("bob")
	waitForState(t, s, StateActive)

	s.NotifyTyping()
	require.Eventually(t, func() bool {
		return stream.stopTypingCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPeerTypingClearedByStopEvent(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("bob")
	waitForState(t, s, StateActive)

	stream.emit(domain.TypingEvent("bob"))
	require.True(t, s.PeerTyping())

	stream.emit(domain.StopTypingEvent("bob"))
	require.False(t, s.PeerTyping())
}

func TestTypingFromOtherUserIgnored(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("bob")
	waitForState(t, s, StateActive)

	stream.emit(domain.TypingEvent("mallory"))
	require.False(t, s.PeerTyping())
}

func TestIrrelevantMessageNotAppended(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("bob")
	waitForState(t, s, StateActive)

	other := msgAt(primitive.NewObjectID(), "carol", "dave", "psst", time.Now())
	stream.emit(domain.NewMessageEvent(other))
	require.Empty(t, s.History())
}

func TestFailedHistoryFetchAllowsRetry(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	stream := newFakeStream()
	backend.histErr = errors.New("network down")

	s := NewSession("self", backend, stream, logger.NewNop())
	s.Select("bob")

	require.Eventually(t, func() bool {
		return s.LastError() != nil
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, StateLoadingHistory, s.State())

	backend.mu.Lock()
	backend.histErr = nil
	backend.histories["bob"] = []*domain.Message{
		msgAt(primitive.NewObjectID(), "bob", "self", "finally", time.Now()),
	}
	backend.mu.Unlock()

	s.RetryHistory()
	waitForState(t, s, StateActive)
	require.Len(t, s.History(), 1)
}
