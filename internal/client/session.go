package client

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/DarshikR/Chat-App/internal/domain"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

// ErrNoConversation is returned by Send when no partner is selected.
var ErrNoConversation = errors.New("no conversation selected")

// State of the session controller with respect to the selected
// conversation partner.
type State int

const (
	StateNoConversation State = iota
	StateLoadingHistory
	StateActive
	StateSwitchingConversation
)

const (
	// typingIdleTimeout is how long after the last keystroke an implicit
	// stop-typing is emitted, so a lost stop event cannot leave the peer
	// indicator on forever.
	typingIdleTimeout = 800 * time.Millisecond

	// typingIndicatorTTL bounds how long the peer's "is typing" state is
	// shown without a fresh typing event.
	typingIndicatorTTL = 3 * time.Second

	historyFetchTimeout = 15 * time.Second
)

// Backend is the REST surface the session controller depends on.
// *API satisfies it.
type Backend interface {
	Contacts(ctx context.Context) ([]*domain.Contact, error)
	History(ctx context.Context, peerID string) ([]*domain.Message, error)
	SendMessage(ctx context.Context, peerID, text, image string) (*domain.Message, error)
}

// EventStream is the push surface the session controller depends on.
// *Socket satisfies it.
type EventStream interface {
	On(event string, fn func(domain.Event))
	Off(event string)
	SendTyping(to string) error
	SendStopTyping(to string) error
}

// Session owns the conversation state for one client: the selected
// partner, the in-memory history for that partner, the event-stream
// subscription lifecycle, and reconciliation of pushed messages with
// fetched history.
type Session struct {
	selfID  string
	backend Backend
	stream  EventStream
	log     logger.Logger

	mu         sync.Mutex
	state      State
	peerID     string
	epoch      int // bumped on every transition; stale fetch results check it
	history    []*domain.Message
	pending    []*domain.Message // pushes buffered while history loads
	subscribed bool
	lastErr    error

	online map[string]bool // latest full presence set from the server

	peerTyping  bool
	typingTimer *time.Timer // local input inactivity
	typingClear *time.Timer // peer indicator self-clear

	// OnUpdate, when set, is invoked (without the lock held) after any
	// state or history change. Used by the UI to redraw.
	OnUpdate func()
}

func NewSession(selfID string, backend Backend, stream EventStream, log logger.Logger) *Session {
	s := &Session{
		selfID:  selfID,
		backend: backend,
		stream:  stream,
		log:     log,
		state:   StateNoConversation,
	}

	// Presence is account-wide, not per-conversation, so it subscribes
	// once here and survives conversation switches and Deselect.
	s.stream.On(domain.EventPresenceUpdate, s.handlePresence)

	return s
}

// Select switches the conversation to peerID. Any previous subscription
// is torn down first, local history is cleared, and a history fetch
// starts. Pushes arriving before the fetch resolves are buffered and
// merged afterwards, ordered by timestamp.
func (s *Session) Select(peerID string) {
	s.mu.Lock()

	if s.state == StateActive || s.state == StateLoadingHistory {
		s.state = StateSwitchingConversation
		s.teardownLocked()
	}

	s.peerID = peerID
	s.history = nil
	s.pending = nil
	s.peerTyping = false
	s.state = StateLoadingHistory
	s.epoch++
	epoch := s.epoch

	s.subscribeLocked()
	s.mu.Unlock()
	s.notify()

	go s.fetchHistory(peerID, epoch)
}

// Deselect leaves the current conversation from any state.
func (s *Session) Deselect() {
	s.mu.Lock()
	s.teardownLocked()
	s.peerID = ""
	s.history = nil
	s.pending = nil
	s.peerTyping = false
	s.state = StateNoConversation
	s.epoch++
	s.mu.Unlock()
	s.notify()
}

// Send submits a message to the current peer. There is no optimistic
// echo: the message appears in history only once the server returns the
// persisted record. A successful send emits an explicit stop-typing.
func (s *Session) Send(ctx context.Context, text, image string) (*domain.Message, error) {
	s.mu.Lock()
	peerID := s.peerID
	s.mu.Unlock()

	if peerID == "" {
		return nil, ErrNoConversation
	}

	msg, err := s.backend.SendMessage(ctx, peerID, text, image)
	if err != nil {
		// The compose input is left untouched by the caller so the user
		// can retry.
		return nil, err
	}

	s.mu.Lock()
	if s.peerID == peerID {
		// While history is still loading the fetched snapshot will
		// replace s.history, so the sent message has to ride the same
		// pending buffer as pushed messages to survive the merge.
		if s.state == StateLoadingHistory {
			s.pending = append(s.pending, msg)
		} else {
			s.history = append(s.history, msg)
		}
	}
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	s.mu.Unlock()

	s.stream.SendStopTyping(peerID)
	s.notify()

	return msg, nil
}

// NotifyTyping signals the peer that the user is composing. Repeated
// calls keep resetting an inactivity timer; once it fires, an implicit
// stop-typing goes out.
func (s *Session) NotifyTyping() {
	s.mu.Lock()
	peerID := s.peerID
	if peerID == "" {
		s.mu.Unlock()
		return
	}

	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(typingIdleTimeout, func() {
		s.stream.SendStopTyping(peerID)
	})
	s.mu.Unlock()

	s.stream.SendTyping(peerID)
}

// State reports the current conversation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Peer reports the currently selected partner id, if any.
func (s *Session) Peer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerID
}

// History returns a snapshot of the conversation view.
func (s *Session) History() []*domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Message, len(s.history))
	copy(out, s.history)
	return out
}

// PeerTyping reports whether the selected peer is currently composing.
func (s *Session) PeerTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerTyping
}

// Online reports whether userID currently has a live connection,
// according to the latest presence broadcast.
func (s *Session) Online(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online[userID]
}

// OnlineUsers returns a snapshot of the current presence set.
func (s *Session) OnlineUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.online))
	for id := range s.online {
		out = append(out, id)
	}
	return out
}

// LastError returns the most recent history-fetch failure, if the
// session is stuck in LoadingHistory because of one.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// RetryHistory re-runs the history fetch for the current peer after a
// failure.
func (s *Session) RetryHistory() {
	s.mu.Lock()
	if s.state != StateLoadingHistory || s.peerID == "" {
		s.mu.Unlock()
		return
	}
	s.lastErr = nil
	peerID := s.peerID
	epoch := s.epoch
	s.mu.Unlock()

	go s.fetchHistory(peerID, epoch)
}

// subscribeLocked installs the event handlers. On replaces any handler
// registered for the same event, so exactly one subscription exists at
// any time.
func (s *Session) subscribeLocked() {
	s.stream.On(domain.EventNewMessage, s.handleNewMessage)
	s.stream.On(domain.EventTyping, s.handleTyping)
	s.stream.On(domain.EventStopTyping, s.handleStopTyping)
	s.subscribed = true
}

func (s *Session) teardownLocked() {
	if !s.subscribed {
		return
	}
	s.stream.Off(domain.EventNewMessage)
	s.stream.Off(domain.EventTyping)
	s.stream.Off(domain.EventStopTyping)
	s.subscribed = false

	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	if s.typingClear != nil {
		s.typingClear.Stop()
		s.typingClear = nil
	}
}

func (s *Session) fetchHistory(peerID string, epoch int) {
	ctx, cancel := context.WithTimeout(context.Background(), historyFetchTimeout)
	defer cancel()

	messages, err := s.backend.History(ctx, peerID)

	s.mu.Lock()
	// A result for a conversation that is no longer selected is stale
	// and must be discarded, however late it arrives.
	if epoch != s.epoch || s.peerID != peerID {
		s.mu.Unlock()
		return
	}

	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.notify()
		return
	}

	s.history = mergeByTimestamp(messages, s.pending)
	s.pending = nil
	s.state = StateActive
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()
}

func (s *Session) handleNewMessage(event domain.Event) {
	msg := event.Message
	if msg == nil {
		return
	}

	s.mu.Lock()
	if !s.relevantLocked(msg) {
		s.mu.Unlock()
		return
	}

	switch s.state {
	case StateLoadingHistory:
		// Arrived in the race window between fetch-start and
		// fetch-complete; merged once the fetch resolves.
		s.pending = append(s.pending, msg)
	case StateActive:
		s.history = append(s.history, msg)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) handlePresence(event domain.Event) {
	online := make(map[string]bool, len(event.OnlineUserIDs))
	for _, id := range event.OnlineUserIDs {
		online[id] = true
	}

	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
	s.notify()
}

func (s *Session) handleTyping(event domain.Event) {
	s.mu.Lock()
	if event.From != s.peerID {
		s.mu.Unlock()
		return
	}
	s.peerTyping = true

	// Self-clear so a dropped stop event cannot leave the indicator
	// stuck.
	if s.typingClear != nil {
		s.typingClear.Stop()
	}
	s.typingClear = time.AfterFunc(typingIndicatorTTL, func() {
		s.mu.Lock()
		s.peerTyping = false
		s.mu.Unlock()
		s.notify()
	})
	s.mu.Unlock()
	s.notify()
}

func (s *Session) handleStopTyping(event domain.Event) {
	s.mu.Lock()
	if event.From != s.peerID {
		s.mu.Unlock()
		return
	}
	s.peerTyping = false
	if s.typingClear != nil {
		s.typingClear.Stop()
		s.typingClear = nil
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) relevantLocked(msg *domain.Message) bool {
	if s.peerID == "" {
		return false
	}
	return (msg.SenderID == s.peerID && msg.ReceiverID == s.selfID) ||
		(msg.SenderID == s.selfID && msg.ReceiverID == s.peerID)
}

func (s *Session) notify() {
	if s.OnUpdate != nil {
		s.OnUpdate()
	}
}

// mergeByTimestamp combines fetched history with buffered pushes,
// dropping duplicates by id and ordering by creation time.
func mergeByTimestamp(fetched, pending []*domain.Message) []*domain.Message {
	seen := make(map[string]bool, len(fetched))
	merged := make([]*domain.Message, 0, len(fetched)+len(pending))

	for _, msg := range fetched {
		seen[msg.ID.Hex()] = true
		merged = append(merged, msg)
	}
	for _, msg := range pending {
		if !seen[msg.ID.Hex()] {
			merged = append(merged, msg)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})

	return merged
}
