package synthesis

import (
	"context"
	"sync/atomic"
	"time"
)

// MockEngine is an in-memory Engine for tests and local development without
// a cloning backend.
type MockEngine struct {
	name  string
	Delay time.Duration
	Fail  error

	calls atomic.Int64
}

var _ Engine = (*MockEngine)(nil)

// NewMockEngine creates a mock engine with the given name.
func NewMockEngine(name string) *MockEngine {
	return &MockEngine{name: name}
}

// Name returns the mock's identifier.
func (m *MockEngine) Name() string {
	return m.name
}

// Calls returns how many Synthesize calls were made.
func (m *MockEngine) Calls() int64 {
	return m.calls.Load()
}

// Synthesize returns a deterministic fake artifact, honoring Delay and Fail.
func (m *MockEngine) Synthesize(ctx context.Context, req Request) (*Artifact, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Fail != nil {
		return nil, m.Fail
	}
	format := req.Format
	if format == "" {
		format = "wav"
	}
	// RIFF header followed by the text keeps the artifact recognizable in
	// assertions without shipping real audio.
	audio := append([]byte("RIFF....WAVE"), []byte(req.Text)...)
	return &Artifact{Audio: audio, Format: format, EngineUsed: m.name}, nil
}

// ExtractFeatures returns a fixed payload, honoring Fail.
func (m *MockEngine) ExtractFeatures(ctx context.Context, audio []byte, format string) ([]byte, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	return []byte(`{"mock":true}`), nil
}

// Health reports Fail when set.
func (m *MockEngine) Health(ctx context.Context) error {
	return m.Fail
}
