package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/d4l-data4life/ollama-chat/pkg/registry"
)

// SettingsHandler exposes the inference server settings and discovered models
type SettingsHandler struct {
	registry      *registry.Registry
	transcription bool
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(reg *registry.Registry, transcription bool) *SettingsHandler {
	return &SettingsHandler{registry: reg, transcription: transcription}
}

// Routes returns settings routes
func (h *SettingsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetSettings)
	r.Put("/", h.UpdateSettings)
	return r
}

// Settings is the user-changeable configuration
type Settings struct {
	OllamaURL     string `json:"ollamaUrl"`
	Transcription bool   `json:"transcription"`
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Settings{
		OllamaURL:     h.registry.Endpoint().URL(),
		Transcription: h.transcription,
	})
}

// UpdateSettings changes the inference server URL for every conversation
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := url.Parse(req.OllamaURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		renderError(w, r, http.StatusBadRequest, "Invalid Ollama URL")
		return
	}

	h.registry.SetBaseURL(req.OllamaURL)
	h.GetSettings(w, r)
}

// ListModels returns the models offered by the inference server
func (h *SettingsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.registry.Models(r.Context()))
}
