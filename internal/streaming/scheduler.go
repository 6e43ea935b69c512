package streaming

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrOverloaded indicates the scheduler refused admission because the
	// concurrency limit is reached and the policy is to reject.
	ErrOverloaded = errors.New("scheduler: concurrency limit reached")
	// ErrQueueFull indicates the bounded admission queue is full.
	ErrQueueFull = errors.New("scheduler: admission queue full")
)

// OverflowPolicy decides what happens to admission requests beyond the
// concurrency limit.
type OverflowPolicy string

const (
	OverflowReject OverflowPolicy = "reject"
	OverflowQueue  OverflowPolicy = "queue"
)

// SchedulerConfig controls the server-wide synthesis admission limit.
type SchedulerConfig struct {
	MaxConcurrent int
	Policy        OverflowPolicy
	QueueSize     int
}

// Scheduler is the server-wide admission controller for synthesis jobs.
// No job may run without holding a Ticket; releasing a ticket makes exactly
// one queued admission eligible, in FIFO order.
type Scheduler struct {
	mu      sync.Mutex
	limit   int
	active  int
	policy  OverflowPolicy
	maxQ    int
	waiters []*waiter
}

type waiter struct {
	ready   chan struct{}
	granted bool
}

// NewScheduler constructs a Scheduler from config.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Policy != OverflowQueue {
		cfg.Policy = OverflowReject
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	return &Scheduler{
		limit:  cfg.MaxConcurrent,
		policy: cfg.Policy,
		maxQ:   cfg.QueueSize,
	}
}

// Admit requests a concurrency slot. Under the reject policy an exhausted
// limit returns ErrOverloaded immediately; under the queue policy the caller
// waits FIFO until a slot frees, the queue overflows (ErrQueueFull), or ctx
// is cancelled.
func (s *Scheduler) Admit(ctx context.Context) (*Ticket, error) {
	s.mu.Lock()
	if s.active < s.limit {
		s.active++
		s.mu.Unlock()
		return &Ticket{s: s}, nil
	}
	if s.policy == OverflowReject {
		s.mu.Unlock()
		return nil, ErrOverloaded
	}
	if len(s.waiters) >= s.maxQ {
		s.mu.Unlock()
		return nil, ErrQueueFull
	}
	w := &waiter{ready: make(chan struct{})}
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	select {
	case <-w.ready:
		return &Ticket{s: s}, nil
	case <-ctx.Done():
		s.mu.Lock()
		if w.granted {
			// The grant raced with cancellation: the slot was already
			// transferred to us, so pass it on.
			s.mu.Unlock()
			s.release()
			return nil, ctx.Err()
		}
		for i, qw := range s.waiters {
			if qw == w {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		return nil, ctx.Err()
	}
}

// release frees one slot, handing it to the oldest waiter if any.
func (s *Scheduler) release() {
	s.mu.Lock()
	if len(s.waiters) > 0 {
		w := s.waiters[0]
		s.waiters = s.waiters[1:]
		w.granted = true
		close(w.ready)
		// active is unchanged: the slot transfers to the waiter.
	} else {
		s.active--
	}
	s.mu.Unlock()
}

// InFlight returns the number of admitted, unreleased tickets.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Queued returns the number of admissions waiting under the queue policy.
func (s *Scheduler) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}

// Ticket is the scheduler's proof that a job may consume a concurrency
// slot. Release is idempotent: calling it more than once frees the slot
// exactly once.
type Ticket struct {
	s    *Scheduler
	once sync.Once
}

// Release frees the slot. Must be called on every exit path, including
// cancellation; callers defer it immediately after Admit.
func (t *Ticket) Release() {
	t.once.Do(t.s.release)
}
