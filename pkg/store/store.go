package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/d4l-data4life/ollama-chat/pkg/models"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// Store is the durable record of conversations and messages.
// Writes are serialized; every write is committed before the call returns.
type Store struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewMessage describes a message to append
type NewMessage struct {
	ConversationID uuid.UUID
	Role           models.MessageRole
	Content        string
	Timestamp      time.Time
	ImagePath      string
	DocLabel       string
	Metadata       datatypes.JSON
}

// New wraps an open database handle
func New(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		now: now,
	}
}

// Now returns the store clock, used for message timestamps
func (s *Store) Now() time.Time {
	return s.now()
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateConversation inserts a new conversation; model may be empty
func (s *Store) CreateConversation(ctx context.Context, name, model string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	conversation := models.Conversation{
		ID:             uuid.New(),
		Name:           name,
		Model:          optional(model),
		CreatedAt:      ts,
		LastAccessedAt: ts,
	}
	if err := s.db.WithContext(ctx).Create(&conversation).Error; err != nil {
		return models.Conversation{}, pkgerrors.Wrap(err, "failed to create conversation")
	}

	logging.LogDebugf("Created conversation: %s (%s)", conversation.ID, name)
	return conversation, nil
}

// GetConversation returns one conversation
func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	var conversation models.Conversation
	if err := findConversation(s.db.WithContext(ctx), id, &conversation); err != nil {
		return models.Conversation{}, err
	}
	return conversation, nil
}

// RenameConversation updates the display name only
func (s *Store) RenameConversation(ctx context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		if err := findConversation(tx, id, &conversation); err != nil {
			return err
		}
		if err := tx.Model(&models.Conversation{}).Where("id = ?", id).Update("name", name).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to rename conversation")
		}
		return nil
	})
}

// SetConversationModel binds a model and refreshes the last-accessed time
func (s *Store) SetConversationModel(ctx context.Context, id uuid.UUID, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		if err := findConversation(tx, id, &conversation); err != nil {
			return err
		}
		if err := tx.Model(&models.Conversation{}).Where("id = ?", id).Update("model", optional(model)).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to update conversation model")
		}
		return s.touch(tx, conversation)
	})
}

// DeleteConversation removes the conversation and all its messages
func (s *Store) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		if err := findConversation(tx, id, &conversation); err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to delete messages")
		}
		if err := tx.Delete(&models.Conversation{}, "id = ?", id).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to delete conversation")
		}
		return nil
	})
	if err == nil {
		logging.LogDebugf("Deleted conversation: %s", id)
	}
	return err
}

// ListConversations returns all conversations, most recently used first
func (s *Store) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := s.db.WithContext(ctx).
		Order("last_accessed_at DESC").
		Order("created_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list conversations")
	}
	return conversations, nil
}

// AppendMessage inserts a message and refreshes the owning conversation's last-accessed time
func (s *Store) AppendMessage(ctx context.Context, msg NewMessage) (models.Message, error) {
	if !msg.Role.Valid() {
		return models.Message{}, ErrInvalidRole
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	message := models.Message{
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		Timestamp:      msg.Timestamp.UTC(),
		ImagePath:      optional(msg.ImagePath),
		RagFilename:    optional(msg.DocLabel),
		Metadata:       msg.Metadata,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		if err := findConversation(tx, msg.ConversationID, &conversation); err != nil {
			return err
		}
		if err := tx.Create(&message).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to save message")
		}
		return s.touch(tx, conversation)
	})
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}

// ListMessages returns all messages of a conversation in timestamp order.
// An unknown conversation yields an empty list.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list messages")
	}
	return messages, nil
}

// touch moves last_accessed_at forward, never backward
func (s *Store) touch(tx *gorm.DB, conversation models.Conversation) error {
	ts := s.now()
	if ts.Before(conversation.LastAccessedAt) {
		ts = conversation.LastAccessedAt
	}
	err := tx.Model(&models.Conversation{}).
		Where("id = ?", conversation.ID).
		Update("last_accessed_at", ts).Error
	if err != nil {
		return pkgerrors.Wrap(err, "failed to update last accessed time")
	}
	return nil
}

func findConversation(tx *gorm.DB, id uuid.UUID, into *models.Conversation) error {
	err := tx.Where("id = ?", id).First(into).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return pkgerrors.Wrap(err, "failed to get conversation")
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
