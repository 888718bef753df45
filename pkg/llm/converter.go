package llm

import (
	"github.com/d4l-data4life/ollama-chat/pkg/models"
)

// HistoryFromMessages rebuilds API-format history from stored messages.
// System messages are transcript annotations and are skipped; stored image
// references are never turned back into payloads.
func HistoryFromMessages(stored []models.Message) []Message {
	history := make([]Message, 0, len(stored))
	for _, m := range stored {
		if m.Role == models.MessageRoleSystem {
			continue
		}
		history = append(history, Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return history
}

// attachImage returns a copy of history with image attached to the last entry,
// which must be a user turn
func attachImage(history []Message, image string) ([]Message, error) {
	if image == "" {
		return history, nil
	}
	if len(history) == 0 || history[len(history)-1].Role != RoleUser {
		return nil, ErrInvalidAttachment
	}
	out := make([]Message, len(history))
	copy(out, history)
	last := out[len(out)-1]
	if last.Content == "" {
		last.Content = " "
	}
	last.Images = []string{image}
	out[len(out)-1] = last
	return out, nil
}

// PrepareMessages validates the request and returns the messages to send
func PrepareMessages(request ChatRequest) ([]Message, error) {
	return attachImage(request.Messages, request.Image)
}
