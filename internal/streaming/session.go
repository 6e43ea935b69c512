package streaming

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle phase of a streaming session.
type State int

const (
	StatePending State = iota
	StateChunking
	StateGenerating
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateChunking:
		return "chunking"
	case StateGenerating:
		return "generating"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Kind distinguishes one-shot synthesis from chunked realtime jobs.
type Kind string

const (
	KindSingle   Kind = "single"
	KindRealtime Kind = "realtime"
)

// Session is the in-memory state machine driving one synthesis job from
// admission to completion. It is exclusively driven by the goroutine that
// created it; the only cross-goroutine interaction is cancellation.
type Session struct {
	ID        uuid.UUID
	ConnID    string
	Kind      Kind
	StartedAt time.Time

	mu      sync.Mutex
	state   State
	chunks  []string
	current int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session in StatePending, owned by the given
// connection. Its context is cancelled when the session is cancelled or the
// parent (connection) context ends.
func NewSession(parent context.Context, connID string, kind Kind) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:        uuid.New(),
		ConnID:    connID,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
		state:     StatePending,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Context returns the session-scoped context. Engine calls made on behalf of
// the session must use it so disconnects stop further work.
func (s *Session) Context() context.Context {
	return s.ctx
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// To transitions to next unless the session is already terminal. Returns
// whether the transition happened.
func (s *Session) To(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return false
	}
	s.state = next
	return true
}

// SetChunks records the ordered chunk list produced by the chunker.
func (s *Session) SetChunks(chunks []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = chunks
	s.current = 0
}

// ChunkCount returns the total chunk count, 0 before chunking.
func (s *Session) ChunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// CurrentChunk returns the 1-based index and text of the chunk being
// generated, or ok=false when all chunks are done.
func (s *Session) CurrentChunk() (int, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current >= len(s.chunks) {
		return 0, "", false
	}
	return s.current + 1, s.chunks[s.current], true
}

// Advance moves to the next chunk.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current++
}

// Cancel moves a non-terminal session to StateCancelled and stops its
// context. In-flight engine calls may finish but their results are
// discarded.
func (s *Session) Cancel() {
	s.To(StateCancelled)
	s.cancel()
}

// Cancelled reports whether the session context has ended.
func (s *Session) Cancelled() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// Close releases the session context. Called when the session reaches a
// terminal state through the normal path.
func (s *Session) Close() {
	s.cancel()
}

// Registry tracks live sessions by owning connection so teardown can cancel
// every session a disconnecting client left behind.
type Registry struct {
	mu     sync.Mutex
	byConn map[string]map[uuid.UUID]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{byConn: make(map[string]map[uuid.UUID]*Session)}
}

// Add registers a session under its owning connection.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, ok := r.byConn[s.ConnID]
	if !ok {
		conns = make(map[uuid.UUID]*Session)
		r.byConn[s.ConnID] = conns
	}
	conns[s.ID] = s
}

// Remove drops a session once it reaches a terminal state.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conns, ok := r.byConn[s.ConnID]; ok {
		delete(conns, s.ID)
		if len(conns) == 0 {
			delete(r.byConn, s.ConnID)
		}
	}
}

// CancelConn cancels every session owned by connID and returns how many
// were cancelled.
func (r *Registry) CancelConn(connID string) int {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.byConn[connID]))
	for _, s := range r.byConn[connID] {
		sessions = append(sessions, s)
	}
	delete(r.byConn, connID)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Cancel()
	}
	return len(sessions)
}

// Count returns the number of live sessions across all connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, conns := range r.byConn {
		n += len(conns)
	}
	return n
}
