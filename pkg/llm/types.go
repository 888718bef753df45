package llm

import (
	"context"
)

// Client defines the interface for inference clients
type Client interface {
	// Chat sends a chat request to the server at baseURL and returns the assistant's reply text
	Chat(ctx context.Context, baseURL string, request ChatRequest) (string, error)

	// ListModels returns the models available at baseURL
	ListModels(ctx context.Context, baseURL string) ([]Model, error)
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	// Image is a base64 payload attached to the final user message only
	Image string `json:"-"`
}

// Message represents a chat message in API format
type Message struct {
	Role    string   `json:"role"` // system, user, assistant
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// Model represents an available LLM model
type Model struct {
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modifiedAt,omitempty"`
}

// Role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NoResponsePlaceholder replaces a reply that carries no message content field
const NoResponsePlaceholder = "No proper response."
