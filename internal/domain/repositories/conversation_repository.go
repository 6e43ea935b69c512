package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/anishvdev/voiceforge/internal/domain/entities"
)

// ConversationRepository persists conversations, their messages and attached
// transcripts. Every method is a suspension point: callers must treat each
// call as fallible and must not hold locks across them.
type ConversationRepository interface {
	// CreateConversation stores a new conversation and never reuses an id.
	CreateConversation(ctx context.Context, conv *entities.Conversation) error

	// GetConversation retrieves a conversation by id, including soft-deleted
	// ones. Returns entities.ErrConversationNotFound if absent.
	GetConversation(ctx context.Context, id uuid.UUID) (*entities.Conversation, error)

	// ListConversations returns the caller's active conversations ordered by
	// most-recently-updated, at most limit rows.
	ListConversations(ctx context.Context, userID string, limit int) ([]*entities.Conversation, error)

	// SoftDeleteConversation flips the active flag. Deleting an already
	// deleted conversation is not an error.
	SoftDeleteConversation(ctx context.Context, id uuid.UUID) error

	// AppendMessage adds a message and touches the conversation's updated_at.
	// Fails with entities.ErrConversationNotFound if the parent is absent.
	AppendMessage(ctx context.Context, msg *entities.Message) error

	// ListMessages returns messages ordered by creation time ascending, at
	// most limit rows.
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*entities.Message, error)

	// AttachTranscript stores a transcript for a message. Fails with
	// entities.ErrMessageNotFound if the message is absent.
	AttachTranscript(ctx context.Context, transcript *entities.Transcript) error
}
