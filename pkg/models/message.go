package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MessageRole defines the possible roles for a message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Valid reports whether r is one of the stored roles
func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem:
		return true
	}
	return false
}

// Message represents a single message in a conversation.
// Messages are append-only and ordered by Timestamp, then ID.
type Message struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"conversationId"`
	Role           MessageRole    `gorm:"size:20;not null;check:role IN ('user','assistant','system')" json:"role"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Timestamp      time.Time      `gorm:"not null;index" json:"timestamp"`
	ImagePath      *string        `gorm:"column:image_path" json:"imagePath,omitempty"`
	RagFilename    *string        `gorm:"column:rag_filename" json:"ragFilename,omitempty"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
}

// TableName specifies the table name for Message model
func (Message) TableName() string {
	return "messages"
}

// ReplyMetadata is stored with assistant replies
type ReplyMetadata struct {
	Model      string `json:"model"`
	DurationMs int64  `json:"durationMs"`
}

// NewReplyMetadata encodes reply metadata for the Metadata column
func NewReplyMetadata(model string, d time.Duration) datatypes.JSON {
	b, err := json.Marshal(ReplyMetadata{Model: model, DurationMs: d.Milliseconds()})
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// ImageRef returns the attached image path or ""
func (m Message) ImageRef() string {
	if m.ImagePath == nil {
		return ""
	}
	return *m.ImagePath
}

// DocLabel returns the attached document label or ""
func (m Message) DocLabel() string {
	if m.RagFilename == nil {
		return ""
	}
	return *m.RagFilename
}
