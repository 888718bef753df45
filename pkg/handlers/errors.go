package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/d4l-data4life/ollama-chat/pkg/attachment"
	"github.com/d4l-data4life/ollama-chat/pkg/export"
	"github.com/d4l-data4life/ollama-chat/pkg/llm"
	"github.com/d4l-data4life/ollama-chat/pkg/session"
	"github.com/d4l-data4life/ollama-chat/pkg/store"
	"github.com/d4l-data4life/ollama-chat/pkg/transcribe"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

const maxUserErrorLength = 140

// renderError writes a JSON error body
func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": message})
}

// renderErr maps a domain error to a status code and a short message
func renderErr(w http.ResponseWriter, r *http.Request, err error, action string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logging.LogErrorfCtx(r.Context(), err, "Failed to %s", action)
	}
	renderError(w, r, status, shortenUserError(err))
}

func statusFor(err error) int {
	var (
		attachErr    *attachment.Error
		transportErr *llm.TransportError
		serverErr    *llm.ServerError
		decodeErr    *llm.DecodeError
		fallbackErr  *transcribe.FallbackError
	)
	switch {
	case errors.Is(err, store.ErrConversationNotFound), errors.Is(err, export.ErrEmptyHistory):
		return http.StatusNotFound
	case errors.Is(err, session.ErrTurnInProgress), errors.Is(err, session.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyTurn), errors.Is(err, session.ErrNoModel),
		errors.Is(err, export.ErrUnsupportedFormat), errors.Is(err, store.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, attachment.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &attachErr):
		return http.StatusBadRequest
	case errors.Is(err, transcribe.ErrNoSpeech):
		return http.StatusUnprocessableEntity
	case errors.Is(err, transcribe.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &transportErr), errors.As(err, &serverErr),
		errors.As(err, &decodeErr), errors.As(err, &fallbackErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// shortenUserError turns an error into a message fit for display
func shortenUserError(err error) string {
	if err == nil {
		return "Unexpected error"
	}

	var (
		transportErr *llm.TransportError
		serverErr    *llm.ServerError
		decodeErr    *llm.DecodeError
		fallbackErr  *transcribe.FallbackError
	)
	switch {
	case errors.As(err, &transportErr):
		return "Could not reach the Ollama server. Please check that it is running."
	case errors.As(err, &serverErr):
		return fmt.Sprintf("Ollama returned status %d.", serverErr.StatusCode)
	case errors.As(err, &decodeErr):
		return "Invalid response from the Ollama server."
	case errors.Is(err, transcribe.ErrNoSpeech):
		return "Could not understand audio."
	case errors.Is(err, transcribe.ErrNotConfigured):
		return "Speech recognition is not configured."
	case errors.As(err, &fallbackErr):
		return "Speech recognition failed. Please try again."
	}

	msg := []rune(err.Error())
	if len(msg) > maxUserErrorLength {
		return string(msg[:maxUserErrorLength]) + "…"
	}
	return string(msg)
}
