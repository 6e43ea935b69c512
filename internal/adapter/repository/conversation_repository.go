package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anishvdev/voiceforge/internal/domain/entities"
	"github.com/anishvdev/voiceforge/internal/domain/repositories"
)

// ConversationRepository handles conversation, message and transcript data
// operations
type ConversationRepository struct {
	db *gorm.DB
}

var _ repositories.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateConversation stores a new conversation
func (r *ConversationRepository) CreateConversation(ctx context.Context, conv *entities.Conversation) error {
	if conv == nil {
		return errors.New("conversation cannot be nil")
	}
	return r.db.WithContext(ctx).Create(conv).Error
}

// GetConversation retrieves a conversation by id, including soft-deleted ones
func (r *ConversationRepository) GetConversation(ctx context.Context, id uuid.UUID) (*entities.Conversation, error) {
	var conv entities.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// ListConversations retrieves active conversations for a user, most recently
// updated first
func (r *ConversationRepository) ListConversations(ctx context.Context, userID string, limit int) ([]*entities.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	var convs []*entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at desc").
		Limit(limit).
		Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// SoftDeleteConversation flips the active flag. Repeating the delete is a
// no-op, not an error.
func (r *ConversationRepository) SoftDeleteConversation(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrConversationNotFound
	}
	return nil
}

// AppendMessage adds a message to a conversation and bumps the
// conversation's updated_at so listings order by recent activity
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg *entities.Message) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}
	if !msg.Role.Valid() {
		return entities.ErrInvalidRole
	}
	if msg.Content == "" {
		return entities.ErrEmptyContent
	}

	// Existence check first so a missing parent surfaces as a domain error
	// instead of a foreign key violation.
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", msg.ConversationID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return entities.ErrConversationNotFound
	}

	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", msg.ConversationID).
		Update("updated_at", time.Now().UTC()).Error
}

// ListMessages retrieves messages of a conversation ordered by creation time
// ascending
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*entities.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var msgs []*entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at asc").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// AttachTranscript stores a transcript for an existing message
func (r *ConversationRepository) AttachTranscript(ctx context.Context, transcript *entities.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("id = ?", transcript.MessageID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return entities.ErrMessageNotFound
	}

	return r.db.WithContext(ctx).Create(transcript).Error
}
