package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/d4l-data4life/ollama-chat/pkg/export"
	"github.com/d4l-data4life/ollama-chat/pkg/registry"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// ExportHandler renders stored conversations as downloadable files
type ExportHandler struct {
	registry *registry.Registry
	now      func() time.Time
}

// NewExportHandler creates a new export handler
func NewExportHandler(reg *registry.Registry) *ExportHandler {
	return &ExportHandler{registry: reg, now: time.Now}
}

// Export writes the conversation as json (default) or txt
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	formatParam := r.URL.Query().Get("format")
	if formatParam == "" {
		formatParam = string(export.FormatJSON)
	}
	format, err := export.ParseFormat(formatParam)
	if err != nil {
		renderErr(w, r, err, "export conversation")
		return
	}

	conversation, err := h.registry.Conversation(r.Context(), id)
	if err != nil {
		renderErr(w, r, err, "export conversation")
		return
	}
	messages, err := h.registry.Messages(r.Context(), id)
	if err != nil {
		renderErr(w, r, err, "export conversation")
		return
	}

	model := conversation.ModelName()
	if s, open := h.registry.Get(id); open {
		model = s.Model()
	}

	var buf bytes.Buffer
	header := export.Header{Name: conversation.Name, Model: model, ExportedAt: h.now()}
	if err := export.Write(&buf, format, header, messages); err != nil {
		renderErr(w, r, err, "export conversation")
		return
	}

	contentType := "application/json"
	if format == export.FormatText {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", conversation.Name+"."+string(format)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.LogErrorfCtx(r.Context(), err, "Error writing export to response body")
	}
}
