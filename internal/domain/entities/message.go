package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MessageRole is who authored a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Valid reports whether the role is one of the two enumerated values.
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one turn in a conversation. Ordering within a conversation is
// by CreatedAt ascending.
type Message struct {
	ID             uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ConversationID uuid.UUID         `json:"conversation_id" gorm:"type:uuid;not null;index"`
	Role           MessageRole       `json:"role" gorm:"type:varchar(16);not null"`
	Content        string            `json:"content" gorm:"type:text;not null"`
	AudioPath      string            `json:"audio_path,omitempty" gorm:"type:text"`
	VoiceUsed      string            `json:"voice_used,omitempty" gorm:"type:varchar(64)"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	Transcripts    []Transcript      `json:"-" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// NewMessage creates a new message
func NewMessage(conversationID uuid.UUID, role MessageRole, content string) *Message {
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
}
