// Package llm abstracts the text-generation endpoint behind two small
// strategy interfaces so the analysis and composition stages can be tested
// against deterministic stubs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUpstream covers network, quota, and service failures on the generation
// endpoint. Transient: call sites retry a small fixed number of times, then
// fall back to degraded content.
var ErrUpstream = errors.New("generation endpoint unavailable")

// Generator is the single polymorphic capability of the text-generation
// endpoint: prompt in, generated text out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a vector for nearest-neighbor search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeneratorFunc adapts a plain function to Generator, for tests and small
// compositions.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const retryBackoff = 500 * time.Millisecond

// WithRetry wraps g so each Generate call is attempted up to 1+retries times
// with a short fixed backoff. Context cancellation stops retrying
// immediately.
func WithRetry(g Generator, retries int) Generator {
	if retries <= 0 {
		return g
	}
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		var lastErr error
		for attempt := 0; attempt <= retries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(retryBackoff):
				}
			}
			out, err := g.Generate(ctx, prompt)
			if err == nil {
				return out, nil
			}
			if ctx.Err() != nil {
				return "", err
			}
			lastErr = err
		}
		return "", fmt.Errorf("after %d attempts: %w", retries+1, lastErr)
	})
}
