package repositories

import (
	"context"

	"github.com/anishvdev/voiceforge/internal/domain/entities"
)

// VoiceRepository persists enrolled voice profiles. Get and Delete return
// entities.ErrVoiceNotFound when the name is not enrolled.
type VoiceRepository interface {
	// Save creates a profile, or replaces the features/audio/metadata of an
	// existing one with the same name (re-enrollment).
	Save(ctx context.Context, profile *entities.VoiceProfile) error

	// Get retrieves a profile by its unique, case-sensitive name.
	Get(ctx context.Context, voiceName string) (*entities.VoiceProfile, error)

	// List returns all profiles ordered by name.
	List(ctx context.Context) ([]*entities.VoiceProfile, error)

	// Search returns profiles whose name matches the query substring.
	Search(ctx context.Context, query string) ([]*entities.VoiceProfile, error)

	// UpdateMetadata replaces only the metadata map. The feature payload is
	// immutable once written.
	UpdateMetadata(ctx context.Context, voiceName string, metadata map[string]interface{}) error

	// Delete removes a profile permanently (hard delete).
	Delete(ctx context.Context, voiceName string) error
}
