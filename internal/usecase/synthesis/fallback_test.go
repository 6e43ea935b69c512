package synthesis

import (
	"context"
	stdErrors "errors"
	"testing"

	"go.uber.org/zap"
)

func TestFallback_FirstEngineServes(t *testing.T) {
	primary := NewMockEngine("primary")
	secondary := NewMockEngine("secondary")
	f := NewFallbackEngine([]Engine{primary, secondary}, zap.NewNop())

	artifact, err := f.Synthesize(context.Background(), Request{Text: "hi", Features: []byte(`{}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.EngineUsed != "primary" {
		t.Fatalf("expected primary to serve, got %s", artifact.EngineUsed)
	}
	if secondary.Calls() != 0 {
		t.Fatal("secondary must not be tried when primary succeeds")
	}
}

func TestFallback_RankedOrder(t *testing.T) {
	primary := NewMockEngine("primary")
	primary.Fail = stdErrors.New("primary down")
	secondary := NewMockEngine("secondary")
	f := NewFallbackEngine([]Engine{primary, secondary}, zap.NewNop())

	artifact, err := f.Synthesize(context.Background(), Request{Text: "hi", Features: []byte(`{}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.EngineUsed != "secondary" {
		t.Fatalf("expected fallback to secondary, got %s", artifact.EngineUsed)
	}
	if primary.Calls() != 1 {
		t.Fatalf("expected primary tried once, got %d", primary.Calls())
	}
}

func TestFallback_AllEnginesFail(t *testing.T) {
	a := NewMockEngine("a")
	a.Fail = stdErrors.New("a down")
	b := NewMockEngine("b")
	b.Fail = stdErrors.New("b down")
	f := NewFallbackEngine([]Engine{a, b}, zap.NewNop())

	_, err := f.Synthesize(context.Background(), Request{Text: "hi"})
	if !stdErrors.Is(err, ErrNoEngineAvailable) {
		t.Fatalf("expected ErrNoEngineAvailable, got %v", err)
	}
}

func TestFallback_ContextCancelledStopsChain(t *testing.T) {
	a := NewMockEngine("a")
	a.Fail = stdErrors.New("a down")
	b := NewMockEngine("b")
	f := NewFallbackEngine([]Engine{a, b}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Synthesize(ctx, Request{Text: "hi"})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if b.Calls() != 0 {
		t.Fatal("chain must not continue after cancellation")
	}
}

func TestFallback_Health(t *testing.T) {
	a := NewMockEngine("a")
	a.Fail = stdErrors.New("a down")
	b := NewMockEngine("b")
	f := NewFallbackEngine([]Engine{a, b}, zap.NewNop())

	if err := f.Health(context.Background()); err != nil {
		t.Fatalf("expected healthy while one backend is up: %v", err)
	}
	b.Fail = stdErrors.New("b down")
	if err := f.Health(context.Background()); err == nil {
		t.Fatal("expected unhealthy when all backends are down")
	}
}
