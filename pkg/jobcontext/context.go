package jobcontext

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	keyJobID     contextKey = "job_id"
	keyJobKind   contextKey = "job_kind"
	keyConnID    contextKey = "conn_id"
	keyStartTime contextKey = "job_start_time"
)

// DefaultJobTimeout bounds a single generation or transcription job.
const DefaultJobTimeout = 5 * time.Minute

// Begin derives a job-scoped context carrying metadata for logging, with a
// timeout so a stuck engine call cannot pin a scheduler slot forever.
func Begin(parent context.Context, jobID uuid.UUID, kind, connID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, DefaultJobTimeout)
	ctx = context.WithValue(ctx, keyJobID, jobID)
	ctx = context.WithValue(ctx, keyJobKind, kind)
	ctx = context.WithValue(ctx, keyConnID, connID)
	ctx = context.WithValue(ctx, keyStartTime, time.Now().UTC())
	return ctx, cancel
}

// JobID returns the job id, or uuid.Nil when ctx is not a job context.
func JobID(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(keyJobID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// Kind returns the job kind ("single", "realtime", "chat", "stt").
func Kind(ctx context.Context) string {
	if v, ok := ctx.Value(keyJobKind).(string); ok {
		return v
	}
	return ""
}

// ConnID returns the owning connection id.
func ConnID(ctx context.Context) string {
	if v, ok := ctx.Value(keyConnID).(string); ok {
		return v
	}
	return ""
}

// Elapsed returns how long the job has been running.
func Elapsed(ctx context.Context) time.Duration {
	if v, ok := ctx.Value(keyStartTime).(time.Time); ok {
		return time.Since(v)
	}
	return 0
}
