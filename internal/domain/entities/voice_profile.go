package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// VoiceProfile is a named, persisted reference to an enrolled speaker.
// VoiceFeatures is an opaque engine-specific payload: it is written once at
// enrollment and never changed afterwards, only the metadata map may be
// updated.
type VoiceProfile struct {
	ID            uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	VoiceName     string            `json:"voice_name" gorm:"type:varchar(64);not null;uniqueIndex"`
	VoiceFeatures datatypes.JSON    `json:"voice_features,omitempty" gorm:"type:jsonb"`
	AudioPath     string            `json:"audio_path" gorm:"type:text"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (VoiceProfile) TableName() string {
	return "voice_profiles"
}

// NewVoiceProfile creates a new voice profile
func NewVoiceProfile(name string, features datatypes.JSON, audioPath string, metadata map[string]interface{}) *VoiceProfile {
	return &VoiceProfile{
		ID:            uuid.New(),
		VoiceName:     name,
		VoiceFeatures: features,
		AudioPath:     audioPath,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
}

// VoiceSummary is the listing shape: everything except the feature payload,
// which is large and engine-internal.
type VoiceSummary struct {
	ID        uuid.UUID              `json:"id"`
	VoiceName string                 `json:"voice_name"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Summary strips the feature payload for listings.
func (v *VoiceProfile) Summary() VoiceSummary {
	return VoiceSummary{
		ID:        v.ID,
		VoiceName: v.VoiceName,
		Metadata:  v.Metadata,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}
