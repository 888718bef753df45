package store

import "errors"

// Sentinel errors for store operations
var (
	// ErrConversationNotFound indicates the referenced conversation does not exist
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidRole indicates a message role outside user/assistant/system
	ErrInvalidRole = errors.New("invalid message role")
)
