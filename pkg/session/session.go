package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d4l-data4life/ollama-chat/pkg/attachment"
	"github.com/d4l-data4life/ollama-chat/pkg/llm"
	"github.com/d4l-data4life/ollama-chat/pkg/metrics"
	"github.com/d4l-data4life/ollama-chat/pkg/models"
	"github.com/d4l-data4life/ollama-chat/pkg/store"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// DefaultImagePrompt is sent when an image goes out without text
const DefaultImagePrompt = "Describe this image."

const documentTemplate = "Using the following document context:\n---\n%s\n---\n\nUser question: %s"

// State of the turn machine
type State int

const (
	// StateIdle accepts a new turn
	StateIdle State = iota
	// StateSending waits for the inference server
	StateSending
)

func (s State) String() string {
	if s == StateSending {
		return "sending"
	}
	return "idle"
}

// Store is the subset of the persistent store a session needs
type Store interface {
	Now() time.Time
	GetConversation(ctx context.Context, id uuid.UUID) (models.Conversation, error)
	SetConversationModel(ctx context.Context, id uuid.UUID, model string) error
	AppendMessage(ctx context.Context, msg store.NewMessage) (models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
}

// Session is the in-memory view of one conversation
type Session struct {
	id       uuid.UUID
	store    Store
	client   llm.Client
	endpoint *llm.Endpoint

	mu         sync.Mutex
	model      string
	state      State
	image      *attachment.Image
	document   *attachment.Document
	transcript []Entry
	history    []llm.Message
	closed     bool
	subs       map[int]chan Event
	nextSub    int
}

// New creates a session for an existing conversation; call LoadFromStore to populate it
func New(id uuid.UUID, st Store, client llm.Client, endpoint *llm.Endpoint) *Session {
	return &Session{
		id:       id,
		store:    st,
		client:   client,
		endpoint: endpoint,
		subs:     map[int]chan Event{},
	}
}

// ID returns the conversation id
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Model returns the bound model, empty if none
func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// State returns the current turn state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Closed reports whether the view was detached
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Transcript returns a copy of the display transcript
func (s *Session) Transcript() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.transcript...)
}

// History returns a copy of the API history
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Message(nil), s.history...)
}

// Subscribe registers for display events; call the returned func to unsubscribe
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribe()
}

// LoadFromStore rebuilds transcript and history from persisted messages.
// Image payloads are never resurrected; only the path is shown.
func (s *Session) LoadFromStore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, err := s.store.GetConversation(ctx, s.id)
	if err != nil {
		return err
	}
	messages, err := s.store.ListMessages(ctx, s.id)
	if err != nil {
		return err
	}

	s.model = conversation.ModelName()
	s.transcript = make([]Entry, 0, len(messages))
	for _, m := range messages {
		s.transcript = append(s.transcript, entryFromMessage(m))
	}
	s.history = llm.HistoryFromMessages(messages)

	logging.LogDebugf("Loaded conversation %s: %d messages, model=%q", s.id, len(messages), s.model)
	s.emit(Event{Kind: EventReloaded})
	return nil
}

// SetModel binds a model to the conversation and persists it
func (s *Session) SetModel(ctx context.Context, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetConversationModel(ctx, s.id, model); err != nil {
		return err
	}
	s.model = model
	s.status(fmt.Sprintf("Model for this chat set to %s.", model))
	return nil
}

// Close detaches the view. A turn still in flight is persisted when it resolves.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// ComposeContent builds the text persisted and sent for a user turn
func ComposeContent(text string, hasImage bool, doc *attachment.Document) string {
	question := text
	if question == "" && hasImage {
		question = DefaultImagePrompt
	}
	if doc != nil {
		return fmt.Sprintf(documentTemplate, doc.Text, question)
	}
	return question
}

// SendTurn persists the user message and dispatches the completion request.
// The returned Turn resolves once the reply (or failure) has been handled.
func (s *Session) SendTurn(ctx context.Context, text string) (*Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.state == StateSending {
		return nil, ErrTurnInProgress
	}
	text = strings.TrimSpace(text)
	if text == "" && s.image == nil {
		return nil, ErrEmptyTurn
	}
	if s.model == "" {
		return nil, ErrNoModel
	}

	msg := store.NewMessage{
		ConversationID: s.id,
		Role:           models.MessageRoleUser,
		Content:        ComposeContent(text, s.image != nil, s.document),
		Timestamp:      s.store.Now(),
	}
	var imagePayload string
	if s.image != nil {
		msg.ImagePath = s.image.Path
		imagePayload = s.image.Base64
	}
	if s.document != nil {
		msg.DocLabel = s.document.Label
	}

	saved, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	entry := entryFromMessage(saved)
	s.transcript = append(s.transcript, entry)
	s.emit(Event{Kind: EventMessage, Entry: &entry})

	history, err := s.rebuildHistory(ctx, saved)
	if err != nil {
		logging.LogErrorf(err, "Failed to rebuild history for conversation %s", s.id)
		s.notice("Error: " + err.Error())
		return nil, err
	}
	s.history = history

	request := llm.ChatRequest{
		Model:    s.model,
		Messages: append([]llm.Message(nil), history...),
		Image:    imagePayload,
	}
	baseURL := s.endpoint.URL()

	s.state = StateSending
	s.image = nil
	turn := &Turn{UserMessage: saved, done: make(chan TurnResult, 1)}
	results := llm.Complete(context.WithoutCancel(ctx), s.client, baseURL, request)
	go s.await(turn, request.Model, results)

	logging.LogDebugf("Dispatched turn for conversation %s to %s (model=%s)", s.id, baseURL, request.Model)
	s.status(fmt.Sprintf("Sending to %s...", request.Model))
	return turn, nil
}

// rebuildHistory reads the stored turns and makes sure the just saved message is last
func (s *Session) rebuildHistory(ctx context.Context, saved models.Message) ([]llm.Message, error) {
	messages, err := s.store.ListMessages(ctx, s.id)
	if err != nil {
		return nil, err
	}
	previous := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if m.ID != saved.ID {
			previous = append(previous, m)
		}
	}
	history := llm.HistoryFromMessages(previous)
	return append(history, llm.Message{Role: llm.RoleUser, Content: saved.Content}), nil
}

func (s *Session) await(turn *Turn, model string, results <-chan llm.Completion) {
	res := <-results
	metrics.ObserveTurn(model, res.Duration, res.Err)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		s.state = StateIdle
		close(turn.done)
	}()

	if res.Err != nil {
		logging.LogWarningf(res.Err, "Chat turn failed for conversation %s", s.id)
		s.notice("Error: " + res.Err.Error())
		turn.done <- TurnResult{Err: res.Err}
		return
	}

	reply, err := s.store.AppendMessage(context.Background(), store.NewMessage{
		ConversationID: s.id,
		Role:           models.MessageRoleAssistant,
		Content:        res.Content,
		Timestamp:      s.store.Now(),
		Metadata:       models.NewReplyMetadata(model, res.Duration),
	})
	if err != nil {
		logging.LogErrorf(err, "Failed to persist reply for conversation %s", s.id)
		s.notice("Error: failed to save reply: " + err.Error())
		turn.done <- TurnResult{Err: err}
		return
	}

	s.history = append(s.history, llm.Message{Role: llm.RoleAssistant, Content: reply.Content})
	entry := entryFromMessage(reply)
	s.transcript = append(s.transcript, entry)
	s.emit(Event{Kind: EventMessage, Entry: &entry})
	s.status("Ready")
	turn.done <- TurnResult{Reply: &reply}
}
