package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/d4l-data4life/ollama-chat/pkg/registry"
	"github.com/d4l-data4life/ollama-chat/pkg/session"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// ConversationsHandler handles conversation endpoints
type ConversationsHandler struct {
	registry *registry.Registry
}

// NewConversationsHandler creates a new conversations handler
func NewConversationsHandler(reg *registry.Registry) *ConversationsHandler {
	return &ConversationsHandler{
		registry: reg,
	}
}

// Routes returns conversation routes
func (h *ConversationsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListConversations)
	r.Post("/", h.CreateConversation)
	r.Get("/{id}", h.GetConversation)
	r.Put("/{id}", h.UpdateConversation)
	r.Delete("/{id}", h.DeleteConversation)
	r.Post("/{id}/open", h.OpenConversation)
	r.Post("/{id}/close", h.CloseConversation)
	r.Put("/{id}/model", h.SetModel)

	return r
}

// CreateConversationRequest represents a request to create a conversation
type CreateConversationRequest struct {
	Name string `json:"name"`
}

// UpdateConversationRequest represents a request to rename a conversation
type UpdateConversationRequest struct {
	Name string `json:"name"`
}

// SetModelRequest binds a model to a conversation
type SetModelRequest struct {
	Model string `json:"model"`
}

// SessionResponse describes an open session
type SessionResponse struct {
	ID         uuid.UUID              `json:"id"`
	Name       string                 `json:"name"`
	Model      string                 `json:"model"`
	State      string                 `json:"state"`
	Attachment session.AttachmentInfo `json:"attachment"`
}

// ListConversations returns all stored conversations, most recently used first
func (h *ConversationsHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.registry.ListSessions(r.Context())
	if err != nil {
		renderErr(w, r, err, "list conversations")
		return
	}
	render.JSON(w, r, summaries)
}

// CreateConversation stores and opens a new conversation
func (h *ConversationsHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		renderError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	s, err := h.registry.CreateSession(r.Context(), req.Name)
	if err != nil {
		renderErr(w, r, err, "create conversation")
		return
	}

	h.renderSession(w, r, s, http.StatusCreated)
}

// GetConversation returns a stored conversation
func (h *ConversationsHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	conversation, err := h.registry.Conversation(r.Context(), id)
	if err != nil {
		renderErr(w, r, err, "get conversation")
		return
	}
	_, open := h.registry.Get(id)
	render.JSON(w, r, registry.Summary{Conversation: conversation, Open: open})
}

// UpdateConversation renames a conversation
func (h *ConversationsHandler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.registry.Rename(r.Context(), id, req.Name); err != nil {
		renderErr(w, r, err, "rename conversation")
		return
	}
	logging.LogDebugf("Renamed conversation: %s", id)

	h.GetConversation(w, r)
}

// DeleteConversation permanently removes a conversation and its messages
func (h *ConversationsHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	if err := h.registry.DeleteSession(r.Context(), id); err != nil {
		renderErr(w, r, err, "delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// OpenConversation attaches a session view, loading it from the store if needed
func (h *ConversationsHandler) OpenConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	s, err := h.registry.Open(r.Context(), id)
	if err != nil {
		renderErr(w, r, err, "open conversation")
		return
	}
	h.renderSession(w, r, s, http.StatusOK)
}

// CloseConversation detaches the session view; stored data is kept
func (h *ConversationsHandler) CloseConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	if !h.registry.CloseView(id) {
		renderError(w, r, http.StatusNotFound, "Conversation is not open")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetModel binds a model to the conversation
func (h *ConversationsHandler) SetModel(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var req SetModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model == "" {
		renderError(w, r, http.StatusBadRequest, "Model is required")
		return
	}

	s, err := h.registry.Open(r.Context(), id)
	if err != nil {
		renderErr(w, r, err, "open conversation")
		return
	}
	if err := s.SetModel(r.Context(), req.Model); err != nil {
		renderErr(w, r, err, "set model")
		return
	}
	h.renderSession(w, r, s, http.StatusOK)
}

func (h *ConversationsHandler) renderSession(w http.ResponseWriter, r *http.Request, s *session.Session, status int) {
	conversation, err := h.registry.Conversation(r.Context(), s.ID())
	if err != nil {
		renderErr(w, r, err, "get conversation")
		return
	}
	render.Status(r, status)
	render.JSON(w, r, SessionResponse{
		ID:         s.ID(),
		Name:       conversation.Name,
		Model:      s.Model(),
		State:      s.State().String(),
		Attachment: s.Attachment(),
	})
}

// conversationID parses the {id} URL parameter
func conversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "Invalid conversation ID")
		return uuid.Nil, false
	}
	return id, true
}
