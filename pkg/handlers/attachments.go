package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/d4l-data4life/ollama-chat/pkg/registry"
)

// AttachmentsHandler handles the pending attachment of a conversation
type AttachmentsHandler struct {
	registry *registry.Registry
}

// NewAttachmentsHandler creates a new attachments handler
func NewAttachmentsHandler(reg *registry.Registry) *AttachmentsHandler {
	return &AttachmentsHandler{registry: reg}
}

// AttachRequest names a local file to attach
type AttachRequest struct {
	Path string `json:"path"`
}

// Attach loads an image or document for the next turn
func (h *AttachmentsHandler) Attach(w http.ResponseWriter, r *http.Request) {
	s, ok := openSession(w, r, h.registry)
	if !ok {
		return
	}

	var req AttachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		renderError(w, r, http.StatusBadRequest, "File path is required")
		return
	}

	if err := s.AttachFile(req.Path); err != nil {
		renderErr(w, r, err, "attach file")
		return
	}
	render.JSON(w, r, s.Attachment())
}

// Clear drops the pending attachment
func (h *AttachmentsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := openSession(w, r, h.registry)
	if !ok {
		return
	}
	s.ClearAttachment()
	w.WriteHeader(http.StatusNoContent)
}

// Get returns the pending attachment
func (h *AttachmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := openSession(w, r, h.registry)
	if !ok {
		return
	}
	render.JSON(w, r, s.Attachment())
}
