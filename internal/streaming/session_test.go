package streaming

import (
	"context"
	"testing"
)

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession(context.Background(), "conn-1", KindRealtime)
	defer s.Close()

	if got := s.State(); got != StatePending {
		t.Fatalf("expected pending, got %s", got)
	}
	for _, next := range []State{StateChunking, StateGenerating, StateStreaming, StateCompleted} {
		if !s.To(next) {
			t.Fatalf("transition to %s refused", next)
		}
	}
	if got := s.State(); got != StateCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestSession_TerminalIsFinal(t *testing.T) {
	s := NewSession(context.Background(), "conn-1", KindSingle)
	defer s.Close()

	s.To(StateGenerating)
	s.To(StateFailed)
	if s.To(StateCompleted) {
		t.Fatal("transition out of a terminal state was allowed")
	}
	if got := s.State(); got != StateFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}

func TestSession_CancelStopsContext(t *testing.T) {
	s := NewSession(context.Background(), "conn-1", KindRealtime)

	s.To(StateGenerating)
	s.Cancel()
	if got := s.State(); got != StateCancelled {
		t.Fatalf("expected cancelled, got %s", got)
	}
	if !s.Cancelled() {
		t.Fatal("expected session context to be done")
	}
	select {
	case <-s.Context().Done():
	default:
		t.Fatal("session context not cancelled")
	}
}

func TestSession_ParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSession(ctx, "conn-1", KindRealtime)
	defer s.Close()

	cancel()
	if !s.Cancelled() {
		t.Fatal("expected session cancelled when parent context ends")
	}
}

func TestSession_ChunkIteration(t *testing.T) {
	s := NewSession(context.Background(), "conn-1", KindRealtime)
	defer s.Close()

	s.SetChunks([]string{"a", "b", "c"})
	if got := s.ChunkCount(); got != 3 {
		t.Fatalf("expected 3 chunks, got %d", got)
	}

	for want := 1; want <= 3; want++ {
		num, _, ok := s.CurrentChunk()
		if !ok {
			t.Fatalf("expected chunk %d available", want)
		}
		if num != want {
			t.Fatalf("expected chunk number %d, got %d", want, num)
		}
		s.Advance()
	}
	if _, _, ok := s.CurrentChunk(); ok {
		t.Fatal("expected iteration exhausted")
	}
}

func TestRegistry_CancelConn(t *testing.T) {
	r := NewRegistry()
	s1 := NewSession(context.Background(), "conn-1", KindRealtime)
	s2 := NewSession(context.Background(), "conn-1", KindSingle)
	s3 := NewSession(context.Background(), "conn-2", KindRealtime)
	defer s3.Close()

	r.Add(s1)
	r.Add(s2)
	r.Add(s3)
	if got := r.Count(); got != 3 {
		t.Fatalf("expected 3 live sessions, got %d", got)
	}

	if n := r.CancelConn("conn-1"); n != 2 {
		t.Fatalf("expected 2 cancelled, got %d", n)
	}
	if !s1.Cancelled() || !s2.Cancelled() {
		t.Fatal("expected conn-1 sessions cancelled")
	}
	if s3.Cancelled() {
		t.Fatal("conn-2 session must be untouched")
	}
	if got := r.Count(); got != 1 {
		t.Fatalf("expected 1 live session, got %d", got)
	}

	// Unknown connections cancel nothing.
	if n := r.CancelConn("conn-9"); n != 0 {
		t.Fatalf("expected 0 cancelled, got %d", n)
	}
}

func TestRegistry_RemoveIsExact(t *testing.T) {
	r := NewRegistry()
	s := NewSession(context.Background(), "conn-1", KindSingle)
	defer s.Close()

	r.Add(s)
	r.Remove(s)
	if got := r.Count(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	// Removing twice is harmless.
	r.Remove(s)
}
