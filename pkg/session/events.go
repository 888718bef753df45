package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/d4l-data4life/ollama-chat/pkg/models"
)

// Entry is one line of the human-readable transcript
type Entry struct {
	Role      models.MessageRole `json:"role"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
	ImagePath string             `json:"imagePath,omitempty"`
	DocLabel  string             `json:"docLabel,omitempty"`
	// Persisted is false for transcript-only notices
	Persisted bool `json:"persisted"`
}

// EventKind defines types of display events
type EventKind string

const (
	// EventMessage announces a persisted user or assistant message
	EventMessage EventKind = "message"
	// EventNotice announces a transcript-only system notice
	EventNotice EventKind = "notice"
	// EventStatus carries a transient status line
	EventStatus EventKind = "status"
	// EventReloaded announces that the transcript was rebuilt from the store
	EventReloaded EventKind = "reloaded"
)

// Event is delivered to subscribers of a session
type Event struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Kind           EventKind `json:"kind"`
	Entry          *Entry    `json:"entry,omitempty"`
	Status         string    `json:"status,omitempty"`
}

func entryFromMessage(m models.Message) Entry {
	return Entry{
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		ImagePath: m.ImageRef(),
		DocLabel:  m.DocLabel(),
		Persisted: true,
	}
}

const subscriberBuffer = 64

// subscribe registers a listener; callers hold s.mu
func (s *Session) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// emit delivers an event without blocking; slow subscribers miss events.
// Callers hold s.mu.
func (s *Session) emit(ev Event) {
	if s.closed {
		return
	}
	ev.ConversationID = s.id
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) notice(text string) {
	entry := Entry{
		Role:      models.MessageRoleSystem,
		Content:   text,
		Timestamp: s.store.Now(),
	}
	s.transcript = append(s.transcript, entry)
	s.emit(Event{Kind: EventNotice, Entry: &entry})
}

func (s *Session) status(text string) {
	s.emit(Event{Kind: EventStatus, Status: text})
}

// Status publishes a transient status line to subscribers
func (s *Session) Status(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status(text)
}
