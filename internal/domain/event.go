package domain

// WebSocket event names, shared by server and client.
const (
	EventPresenceUpdate = "presenceUpdate"
	EventNewMessage     = "newMessage"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
)

// Event is the envelope for everything crossing the socket. Exactly one
// of the payload fields is set, depending on Name.
type Event struct {
	Name string `json:"event"`

	// presenceUpdate: the full online set, not a delta.
	OnlineUserIDs []string `json:"onlineUserIds,omitempty"`

	// newMessage
	Message *Message `json:"message,omitempty"`

	// typing / stopTyping
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

func PresenceEvent(online []string) Event {
	return Event{Name: EventPresenceUpdate, OnlineUserIDs: online}
}

func NewMessageEvent(msg *Message) Event {
	return Event{Name: EventNewMessage, Message: msg}
}

func TypingEvent(from string) Event {
	return Event{Name: EventTyping, From: from}
}

func StopTypingEvent(from string) Event {
	return Event{Name: EventStopTyping, From: from}
}
