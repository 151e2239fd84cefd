package llm

import (
	"context"
	"errors"
	"testing"
)

func TestWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	g := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls < 3 {
			return "", ErrUpstream
		}
		return "ok", nil
	})

	out, err := WithRetry(g, 2).Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "ok" {
		t.Fatalf("out got %q", out)
	}
	if calls != 3 {
		t.Fatalf("calls got %d want 3", calls)
	}
}

func TestWithRetry_ExhaustsAndWraps(t *testing.T) {
	calls := 0
	g := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", ErrUpstream
	})

	_, err := WithRetry(g, 1).Generate(context.Background(), "p")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected wrapped ErrUpstream, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls got %d want 2", calls)
	}
}

func TestWithRetry_ZeroRetriesPassesThrough(t *testing.T) {
	g := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "direct", nil
	})
	wrapped := WithRetry(g, 0)

	out, err := wrapped.Generate(context.Background(), "p")
	if err != nil || out != "direct" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	g := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		cancel()
		return "", ErrUpstream
	})

	_, err := WithRetry(g, 5).Generate(ctx, "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls got %d want 1 (no retry after cancel)", calls)
	}
}
