package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Transcript records the speech-to-text result attached to a message whose
// content arrived as audio. Confidence is in [0.0, 1.0].
type Transcript struct {
	ID               uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	MessageID        uuid.UUID         `json:"message_id" gorm:"type:uuid;not null;index"`
	TranscriptText   string            `json:"transcript_text" gorm:"type:text;not null"`
	Confidence       float64           `json:"confidence"`
	LanguageDetected string            `json:"language_detected,omitempty" gorm:"type:varchar(32)"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt        time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (Transcript) TableName() string {
	return "transcripts"
}

// NewTranscript creates a new transcript for a message
func NewTranscript(messageID uuid.UUID, text string, confidence float64, language string) *Transcript {
	return &Transcript{
		ID:               uuid.New(),
		MessageID:        messageID,
		TranscriptText:   text,
		Confidence:       confidence,
		LanguageDetected: language,
		CreatedAt:        time.Now().UTC(),
	}
}
