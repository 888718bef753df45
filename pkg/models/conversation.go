package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultConversationName is used when a conversation is created without a name
const DefaultConversationName = "New Chat"

// Conversation represents a durably stored chat thread
type Conversation struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"size:500;not null" json:"name"`
	Model          *string   `gorm:"size:200" json:"model"`
	CreatedAt      time.Time `gorm:"not null" json:"createdAt"`
	LastAccessedAt time.Time `gorm:"not null;index" json:"lastAccessedAt"`

	// Associations
	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// TableName specifies the table name for Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate hook to ensure ID is set
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ModelName returns the bound model or "" if none is set
func (c Conversation) ModelName() string {
	if c.Model == nil {
		return ""
	}
	return *c.Model
}
