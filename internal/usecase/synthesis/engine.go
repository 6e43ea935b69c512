package synthesis

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable indicates the cloning backend is not reachable.
	ErrBackendUnavailable = errors.New("synthesis backend unavailable")
	// ErrNoEngineAvailable indicates every backend in the fallback chain
	// failed for a request.
	ErrNoEngineAvailable = errors.New("no synthesis engine available")
)

// Request carries one synthesis call: the text to speak and the enrolled
// speaker's opaque feature payload.
type Request struct {
	Text     string
	Features []byte
	Format   string
}

// Artifact is the synthesized audio plus which engine produced it.
type Artifact struct {
	Audio      []byte
	Format     string
	EngineUsed string
}

// Engine is the contract for a voice-cloning backend: text plus speaker
// reference in, raw audio out. Implementations also extract the feature
// payload from reference audio at enrollment time.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, req Request) (*Artifact, error)
	ExtractFeatures(ctx context.Context, audio []byte, format string) ([]byte, error)
	Health(ctx context.Context) error
}

// BackendError represents an error response from a cloning backend.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
}

// IsBackendError checks if an error is a BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
