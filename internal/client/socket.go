package client

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/DarshikR/Chat-App/internal/domain"
)

// Socket is the client end of the event stream. Handlers are keyed by
// event name; On replaces any existing handler for that event, so a
// subscribe after an unsubscribe (or a repeated subscribe) can never
// stack duplicate handlers.
type Socket struct {
	conn *websocket.Conn

	mu       sync.Mutex
	handlers map[string]func(domain.Event)

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// DialSocket connects to the server's event stream, authenticating with
// the access token, and starts the read loop.
func DialSocket(wsURL, token string) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	s := &Socket{
		conn:     conn,
		handlers: make(map[string]func(domain.Event)),
		done:     make(chan struct{}),
	}
	go s.readLoop()

	return s, nil
}

func (s *Socket) On(event string, fn func(domain.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = fn
}

func (s *Socket) Off(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}

func (s *Socket) SendTyping(to string) error {
	return s.write(domain.Event{Name: domain.EventTyping, To: to})
}

func (s *Socket) SendStopTyping(to string) error {
	return s.write(domain.Event{Name: domain.EventStopTyping, To: to})
}

func (s *Socket) Close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Done is closed once the connection is gone, whichever side ended it.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

func (s *Socket) write(event domain.Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(event)
}

func (s *Socket) readLoop() {
	defer s.Close()

	for {
		var event domain.Event
		if err := s.conn.ReadJSON(&event); err != nil {
			return
		}

		s.mu.Lock()
		fn := s.handlers[event.Name]
		s.mu.Unlock()

		if fn != nil {
			fn(event)
		}
	}
}
