package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/d4l-data4life/ollama-chat/pkg/metrics"
	"github.com/d4l-data4life/ollama-chat/pkg/registry"
	"github.com/d4l-data4life/ollama-chat/pkg/transcribe"
)

const maxAudioBytes = 25 << 20

// TranscribeHandler turns recorded audio into text for the input field
type TranscribeHandler struct {
	registry    *registry.Registry
	transcriber transcribe.Transcriber
}

// NewTranscribeHandler creates a new transcription handler; transcriber may be nil
func NewTranscribeHandler(reg *registry.Registry, transcriber transcribe.Transcriber) *TranscribeHandler {
	return &TranscribeHandler{registry: reg, transcriber: transcriber}
}

// TranscribeResponse carries the recognized text; it is never sent automatically
type TranscribeResponse struct {
	Text string `json:"text"`
}

// Transcribe reads a raw audio body and returns its transcription
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	s, ok := openSession(w, r, h.registry)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioBytes))
	if err != nil {
		renderError(w, r, http.StatusRequestEntityTooLarge, "Audio clip too large")
		return
	}
	if len(data) == 0 {
		renderError(w, r, http.StatusBadRequest, "Audio body is required")
		return
	}

	s.Status("Transcribing...")
	res := <-transcribe.Start(r.Context(), h.transcriber, transcribe.Audio{
		Data:   data,
		Format: audioFormat(r),
	})
	metrics.TranscriptionsTotal.WithLabelValues(transcriptionOutcome(res.Err)).Inc()
	if res.Err != nil {
		s.Status(shortenUserError(res.Err))
		renderErr(w, r, res.Err, "transcribe audio")
		return
	}

	s.Status("Transcription ready")
	render.JSON(w, r, TranscribeResponse{Text: res.Text})
}

func audioFormat(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return strings.TrimPrefix(strings.ToLower(f), ".")
	}
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "webm"):
		return "webm"
	case strings.Contains(contentType, "ogg"):
		return "ogg"
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return "mp3"
	}
	return "wav"
}

func transcriptionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, transcribe.ErrNoSpeech):
		return "no_speech"
	}
	return "failed"
}
