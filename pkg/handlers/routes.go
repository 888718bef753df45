package handlers

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/d4l-data4life/ollama-chat/pkg/registry"
	"github.com/d4l-data4life/ollama-chat/pkg/transcribe"

	"github.com/d4l-data4life/go-svc/pkg/middlewares"
)

// Dependencies are the services the API handlers work on
type Dependencies struct {
	Registry    *registry.Registry
	Transcriber transcribe.Transcriber
	// CorsHosts are the origins allowed to open event sockets
	CorsHosts []string
	// ServiceSecret protects every route when set
	ServiceSecret string
}

// RegisterRoutes registers all API routes. limits wrap request/response
// routes only; event sockets are long-lived and bypass them.
func RegisterRoutes(r chi.Router, deps Dependencies, limits ...func(http.Handler) http.Handler) {
	conversationsHandler := NewConversationsHandler(deps.Registry)
	messagesHandler := NewMessagesHandler(deps.Registry, deps.CorsHosts)
	attachmentsHandler := NewAttachmentsHandler(deps.Registry)
	exportHandler := NewExportHandler(deps.Registry)
	transcribeHandler := NewTranscribeHandler(deps.Registry, deps.Transcriber)
	settingsHandler := NewSettingsHandler(deps.Registry, deps.Transcriber != nil)

	r.Group(func(r chi.Router) {
		if deps.ServiceSecret != "" {
			serviceAuth := middlewares.NewServiceSecretAuthenticator(deps.ServiceSecret, secretRejections{})
			r.Use(serviceAuth.Authenticate())
		}

		r.Get("/conversations/{id}/events", messagesHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(limits...)

			r.Get("/models", settingsHandler.ListModels)
			r.Mount("/settings", settingsHandler.Routes())

			// Conversations
			r.Mount("/conversations", conversationsHandler.Routes())

			// Messages (nested under conversations)
			r.Route("/conversations/{id}/messages", func(r chi.Router) {
				r.Mount("/", messagesHandler.Routes())
			})
			r.Get("/conversations/{id}/transcript", messagesHandler.Transcript)

			r.Get("/conversations/{id}/attachment", attachmentsHandler.Get)
			r.Post("/conversations/{id}/attachment", attachmentsHandler.Attach)
			r.Delete("/conversations/{id}/attachment", attachmentsHandler.Clear)

			r.Get("/conversations/{id}/export", exportHandler.Export)
			r.Post("/conversations/{id}/transcribe", transcribeHandler.Transcribe)
		})
	})
}
