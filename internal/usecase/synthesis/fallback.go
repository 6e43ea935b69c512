package synthesis

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FallbackEngine is a ranked chain of cloning backends behind the single
// Engine interface. Each call tries the backends in priority order and
// surfaces the first success, recording which backend served it.
type FallbackEngine struct {
	engines []Engine
	logger  *zap.Logger
}

var _ Engine = (*FallbackEngine)(nil)

// NewFallbackEngine wires the ranked backend list. The list must not be
// empty.
func NewFallbackEngine(engines []Engine, logger *zap.Logger) *FallbackEngine {
	return &FallbackEngine{engines: engines, logger: logger}
}

// Name identifies the chain in logs.
func (f *FallbackEngine) Name() string {
	return "fallback"
}

// Synthesize tries each backend in order until one succeeds.
func (f *FallbackEngine) Synthesize(ctx context.Context, req Request) (*Artifact, error) {
	var lastErr error
	for _, engine := range f.engines {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		artifact, err := engine.Synthesize(ctx, req)
		if err == nil {
			f.logger.Debug("synthesis served",
				zap.String("engine", engine.Name()),
				zap.Int("audio_bytes", len(artifact.Audio)),
			)
			return artifact, nil
		}
		f.logger.Warn("synthesis backend failed, trying next",
			zap.String("engine", engine.Name()),
			zap.Error(err),
		)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrNoEngineAvailable, lastErr)
}

// ExtractFeatures tries each backend in order until one succeeds.
func (f *FallbackEngine) ExtractFeatures(ctx context.Context, audio []byte, format string) ([]byte, error) {
	var lastErr error
	for _, engine := range f.engines {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		features, err := engine.ExtractFeatures(ctx, audio, format)
		if err == nil {
			f.logger.Debug("feature extraction served", zap.String("engine", engine.Name()))
			return features, nil
		}
		f.logger.Warn("feature extraction backend failed, trying next",
			zap.String("engine", engine.Name()),
			zap.Error(err),
		)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrNoEngineAvailable, lastErr)
}

// Health succeeds when at least one backend is reachable.
func (f *FallbackEngine) Health(ctx context.Context) error {
	var lastErr error
	for _, engine := range f.engines {
		if err := engine.Health(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("%w: %v", ErrNoEngineAvailable, lastErr)
}
