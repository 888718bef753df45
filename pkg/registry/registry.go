package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/d4l-data4life/ollama-chat/pkg/llm"
	"github.com/d4l-data4life/ollama-chat/pkg/models"
	"github.com/d4l-data4life/ollama-chat/pkg/session"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// BootstrapName names the conversation created on first start
const BootstrapName = "Default Chat"

// Store is the subset of the persistent store the registry needs
type Store interface {
	session.Store
	CreateConversation(ctx context.Context, name, model string) (models.Conversation, error)
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	RenameConversation(ctx context.Context, id uuid.UUID, name string) error
	DeleteConversation(ctx context.Context, id uuid.UUID) error
}

// Config holds configuration for the registry
type Config struct {
	// ModelsCacheTTL bounds how long discovered models are reused
	ModelsCacheTTL time.Duration
}

// Registry tracks the open sessions and the shared inference endpoint
type Registry struct {
	store    Store
	client   llm.Client
	endpoint *llm.Endpoint
	models   *cache.Cache

	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session
	// closed views whose last turn has not resolved yet
	pending map[uuid.UUID]*session.Session
}

// Summary describes a stored conversation for listings
type Summary struct {
	models.Conversation
	Open bool `json:"open"`
}

// New creates a registry over the given store and inference endpoint
func New(st Store, client llm.Client, endpoint *llm.Endpoint, config Config) *Registry {
	if config.ModelsCacheTTL <= 0 {
		config.ModelsCacheTTL = time.Minute
	}
	return &Registry{
		store:    st,
		client:   client,
		endpoint: endpoint,
		models:   cache.New(config.ModelsCacheTTL, 2*config.ModelsCacheTTL),
		sessions: map[uuid.UUID]*session.Session{},
		pending:  map[uuid.UUID]*session.Session{},
	}
}

// Endpoint returns the shared inference endpoint
func (r *Registry) Endpoint() *llm.Endpoint {
	return r.endpoint
}

// SetBaseURL points every session at a new inference server.
// Turns already in flight keep the URL they were dispatched with.
func (r *Registry) SetBaseURL(url string) {
	if r.endpoint.Set(url) {
		r.models.Flush()
		logging.LogInfof("Inference server set to %s", r.endpoint.URL())
	}
}

// Models returns the models offered by the inference server.
// Discovery failure yields an empty list.
func (r *Registry) Models(ctx context.Context) []llm.Model {
	url := r.endpoint.URL()
	if cached, ok := r.models.Get(url); ok {
		return cached.([]llm.Model)
	}

	discovered, err := r.client.ListModels(ctx, url)
	if err != nil {
		logging.LogWarningf(err, "Could not fetch models from %s", url)
		return []llm.Model{}
	}
	r.models.Set(url, discovered, cache.DefaultExpiration)
	return discovered
}

// CreateSession stores a new conversation and opens it.
// The first discovered model is bound when available.
func (r *Registry) CreateSession(ctx context.Context, name string) (*session.Session, error) {
	if name == "" {
		existing, err := r.store.ListConversations(ctx)
		if err != nil {
			return nil, err
		}
		name = fmt.Sprintf("Chat %d", len(existing)+1)
	}

	var model string
	if available := r.Models(ctx); len(available) > 0 {
		model = available[0].Name
	}

	conversation, err := r.store.CreateConversation(ctx, name, model)
	if err != nil {
		return nil, err
	}
	logging.LogInfof("New chat '%s' created (model=%q)", name, model)
	return r.Open(ctx, conversation.ID)
}

// Open returns the attached session for id, materializing it from the store if needed.
// A conversation whose closed view still waits for a reply cannot be reopened until
// that reply is stored.
func (r *Registry) Open(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	if s, ok := r.pending[id]; ok {
		if s.State() == session.StateSending {
			return nil, session.ErrTurnInProgress
		}
		delete(r.pending, id)
	}
	s := session.New(id, r.store, r.client, r.endpoint)
	if err := s.LoadFromStore(ctx); err != nil {
		return nil, err
	}
	r.sessions[id] = s
	return s, nil
}

// Get returns an open session
func (r *Registry) Get(id uuid.UUID) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// ListSessions returns every stored conversation, most recently used first
func (r *Registry) ListSessions(ctx context.Context) ([]Summary, error) {
	conversations, err := r.store.ListConversations(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	summaries := make([]Summary, 0, len(conversations))
	for _, c := range conversations {
		_, open := r.sessions[c.ID]
		summaries = append(summaries, Summary{Conversation: c, Open: open})
	}
	return summaries, nil
}

// Rename changes the display name of a conversation
func (r *Registry) Rename(ctx context.Context, id uuid.UUID, name string) error {
	if name == "" {
		name = models.DefaultConversationName
	}
	return r.store.RenameConversation(ctx, id, name)
}

// CloseView detaches the session; stored data is kept
func (r *Registry) CloseView(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		r.detach(id, s)
	}
	return ok
}

// detach closes s and remembers it while its turn is in flight; r.mu must be held
func (r *Registry) detach(id uuid.UUID, s *session.Session) {
	delete(r.sessions, id)
	s.Close()
	if s.State() == session.StateSending {
		r.pending[id] = s
	}
}

// DeleteSession closes the view and removes the conversation with all its messages
func (r *Registry) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.store.DeleteConversation(ctx, id); err != nil {
		return err
	}
	r.CloseView(id)
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
	logging.LogInfof("Deleted chat %s", id)
	return nil
}

// Bootstrap opens every stored conversation. With an empty store and a
// reachable inference server a first conversation is created.
func (r *Registry) Bootstrap(ctx context.Context) error {
	conversations, err := r.store.ListConversations(ctx)
	if err != nil {
		return err
	}

	if len(conversations) == 0 {
		if len(r.Models(ctx)) == 0 {
			logging.LogInfof("No chats stored and no models available")
			return nil
		}
		_, err := r.CreateSession(ctx, BootstrapName)
		return err
	}

	for _, c := range conversations {
		if _, err := r.Open(ctx, c.ID); err != nil {
			return err
		}
	}
	logging.LogInfof("Opened %d stored chats", len(conversations))
	return nil
}

// CloseAll detaches every session
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		r.detach(id, s)
	}
}

// Conversation returns the stored conversation
func (r *Registry) Conversation(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	return r.store.GetConversation(ctx, id)
}

// Messages returns the stored messages of a conversation in order
func (r *Registry) Messages(ctx context.Context, id uuid.UUID) ([]models.Message, error) {
	if _, err := r.store.GetConversation(ctx, id); err != nil {
		return nil, err
	}
	return r.store.ListMessages(ctx, id)
}
