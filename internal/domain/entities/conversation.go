package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Defaults applied when a client omits the optional start_conversation fields.
const (
	DefaultUserID   = "anonymous"
	DefaultTitle    = "New Conversation"
	DefaultLanguage = "hinglish"
)

// Conversation groups a multi-turn exchange. Deleting a conversation flips
// IsActive instead of removing the row, so messages stay queryable by id.
type Conversation struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    string            `json:"user_id" gorm:"type:varchar(255);not null;index;default:'anonymous'"`
	Title     string            `json:"title" gorm:"type:varchar(255)"`
	Language  string            `json:"language" gorm:"type:varchar(32)"`
	IsActive  bool              `json:"is_active" gorm:"not null;default:true;index"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	Messages  []Message         `json:"-" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"autoUpdateTime;index"`
}

// TableName specifies the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// NewConversation creates a new conversation, applying defaults for any
// omitted field.
func NewConversation(userID, title, language string, metadata map[string]interface{}) *Conversation {
	if userID == "" {
		userID = DefaultUserID
	}
	if title == "" {
		title = DefaultTitle
	}
	if language == "" {
		language = DefaultLanguage
	}
	return &Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Language:  language,
		IsActive:  true,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}
