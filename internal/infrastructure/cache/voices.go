package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/anishvdev/voiceforge/internal/domain/entities"
)

const voiceKeyPrefix = "voice_profile:"

// VoiceProfileCache is a read-through cache for voice profiles, which are
// fetched on every synthesis request. Cache failures are logged and treated
// as misses, never propagated.
type VoiceProfileCache struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewVoiceProfileCache creates a profile cache on top of a Store
func NewVoiceProfileCache(store Store, ttl time.Duration, logger *zap.Logger) *VoiceProfileCache {
	return &VoiceProfileCache{store: store, ttl: ttl, logger: logger}
}

// Get returns a cached profile, or nil on miss
func (c *VoiceProfileCache) Get(ctx context.Context, voiceName string) *entities.VoiceProfile {
	raw, ok, err := c.store.Get(ctx, voiceKeyPrefix+voiceName)
	if err != nil {
		c.logger.Warn("voice cache read failed", zap.String("voice_name", voiceName), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var profile entities.VoiceProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		c.logger.Warn("voice cache entry corrupt", zap.String("voice_name", voiceName), zap.Error(err))
		_ = c.store.Delete(ctx, voiceKeyPrefix+voiceName)
		return nil
	}
	return &profile
}

// Set caches a profile
func (c *VoiceProfileCache) Set(ctx context.Context, profile *entities.VoiceProfile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		c.logger.Warn("voice cache marshal failed", zap.String("voice_name", profile.VoiceName), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, voiceKeyPrefix+profile.VoiceName, string(raw), c.ttl); err != nil {
		c.logger.Warn("voice cache write failed", zap.String("voice_name", profile.VoiceName), zap.Error(err))
	}
}

// Invalidate drops a cached profile after enrollment or deletion
func (c *VoiceProfileCache) Invalidate(ctx context.Context, voiceName string) {
	if err := c.store.Delete(ctx, voiceKeyPrefix+voiceName); err != nil {
		c.logger.Warn("voice cache invalidate failed", zap.String("voice_name", voiceName), zap.Error(err))
	}
}
