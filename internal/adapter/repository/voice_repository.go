package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anishvdev/voiceforge/internal/domain/entities"
	"github.com/anishvdev/voiceforge/internal/domain/repositories"
)

// VoiceRepository handles voice profile data operations
type VoiceRepository struct {
	db *gorm.DB
}

var _ repositories.VoiceRepository = (*VoiceRepository)(nil)

// NewVoiceRepository creates a new voice repository
func NewVoiceRepository(db *gorm.DB) *VoiceRepository {
	return &VoiceRepository{db: db}
}

// Save creates a voice profile or replaces an existing enrollment with the
// same name. Name uniqueness is enforced by the unique index.
func (r *VoiceRepository) Save(ctx context.Context, profile *entities.VoiceProfile) error {
	if profile == nil {
		return errors.New("voice profile cannot be nil")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "voice_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"voice_features", "audio_path", "metadata", "updated_at",
			}),
		}).
		Create(profile).Error
}

// Get retrieves a voice profile by name
func (r *VoiceRepository) Get(ctx context.Context, voiceName string) (*entities.VoiceProfile, error) {
	var profile entities.VoiceProfile
	if err := r.db.WithContext(ctx).Where("voice_name = ?", voiceName).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrVoiceNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// List retrieves all voice profiles ordered by name
func (r *VoiceRepository) List(ctx context.Context) ([]*entities.VoiceProfile, error) {
	var profiles []*entities.VoiceProfile
	if err := r.db.WithContext(ctx).Order("voice_name asc").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Search retrieves profiles whose name contains the query substring
func (r *VoiceRepository) Search(ctx context.Context, query string) ([]*entities.VoiceProfile, error) {
	var profiles []*entities.VoiceProfile
	if err := r.db.WithContext(ctx).
		Where("voice_name ILIKE ?", "%"+query+"%").
		Order("voice_name asc").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpdateMetadata replaces the metadata map only. The feature payload and
// reference audio are immutable after enrollment.
func (r *VoiceRepository) UpdateMetadata(ctx context.Context, voiceName string, metadata map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&entities.VoiceProfile{}).
		Where("voice_name = ?", voiceName).
		Updates(map[string]interface{}{
			"metadata":   metadata,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrVoiceNotFound
	}
	return nil
}

// Delete removes a voice profile permanently
func (r *VoiceRepository) Delete(ctx context.Context, voiceName string) error {
	res := r.db.WithContext(ctx).Where("voice_name = ?", voiceName).Delete(&entities.VoiceProfile{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrVoiceNotFound
	}
	return nil
}
