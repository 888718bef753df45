package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/d4l-data4life/ollama-chat/pkg/models"
	"github.com/d4l-data4life/ollama-chat/pkg/registry"
	"github.com/d4l-data4life/ollama-chat/pkg/session"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// MessagesHandler handles message, transcript and event endpoints of one conversation
type MessagesHandler struct {
	registry *registry.Registry
	upgrader websocket.Upgrader
}

// NewMessagesHandler creates a new messages handler
func NewMessagesHandler(reg *registry.Registry, allowedOrigins []string) *MessagesHandler {
	return &MessagesHandler{
		registry: reg,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigins),
		},
	}
}

// Routes returns message routes
func (h *MessagesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMessages)
	r.Post("/", h.SendMessage)

	return r
}

// SendMessageRequest represents a request to send a message
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse represents the response to sending a message.
// AssistantMessage is only set when the caller waited for the reply.
type SendMessageResponse struct {
	UserMessage      models.Message  `json:"userMessage"`
	AssistantMessage *models.Message `json:"assistantMessage,omitempty"`
}

// ListMessages returns all stored messages of a conversation
func (h *MessagesHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	messages, err := h.registry.Messages(r.Context(), id)
	if err != nil {
		renderErr(w, r, err, "list messages")
		return
	}
	render.JSON(w, r, messages)
}

// SendMessage persists the user turn and dispatches it to the model.
// With ?wait=true the response carries the reply as well.
func (h *MessagesHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := openSession(w, r, h.registry)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	turn, err := s.SendTurn(r.Context(), req.Content)
	if err != nil {
		renderErr(w, r, err, "send message")
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, SendMessageResponse{UserMessage: turn.UserMessage})
		return
	}

	res, err := turn.Wait(r.Context())
	if err != nil {
		renderError(w, r, http.StatusGatewayTimeout, "Request ended before the model replied")
		return
	}
	if res.Err != nil {
		renderErr(w, r, res.Err, "complete turn")
		return
	}
	render.JSON(w, r, SendMessageResponse{UserMessage: turn.UserMessage, AssistantMessage: res.Reply})
}

// Transcript returns the display transcript of an open session, notices included
func (h *MessagesHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	s, ok := openSession(w, r, h.registry)
	if !ok {
		return
	}
	render.JSON(w, r, s.Transcript())
}

// Events streams display events of a session via WebSocket
func (h *MessagesHandler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := openSession(w, r, h.registry)
	if !ok {
		return
	}

	// subscribe first so nothing emitted during the handshake is lost
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.LogErrorf(err, "Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close()

	logging.LogDebugf("WebSocket connection established: conversation=%s", s.ID())

	// the client only ever closes; reading detects that
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logging.LogDebugf("WebSocket read ended: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case ev, open := <-events:
			if !open {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "chat closed"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				logging.LogErrorf(err, "WebSocket write error")
				return
			}
		case <-gone:
			return
		}
	}
}

// openSession resolves {id} to an attached session, opening it when needed
func openSession(w http.ResponseWriter, r *http.Request, reg *registry.Registry) (*session.Session, bool) {
	id, ok := conversationID(w, r)
	if !ok {
		return nil, false
	}
	s, err := reg.Open(r.Context(), id)
	if err != nil {
		renderErr(w, r, err, "open conversation")
		return nil, false
	}
	return s, true
}

// checkOrigin accepts requests without Origin (non-browser clients) and the configured hosts
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, host := range allowed {
			if host == "*" || host == origin {
				return true
			}
		}
		return false
	}
}
