// Package llm abstracts the optional text-generation capability used to
// phrase reorder rationales. Implementations may fail or return empty
// output; callers treat both as "no text" and fall back to their own
// deterministic wording.
package llm

import (
	"context"
	"time"
)

// TextGenerator produces a short completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the TextGenerator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// WithTimeout bounds every Generate call so a hung upstream degrades into
// the caller's fallback instead of blocking the request.
func WithTimeout(g TextGenerator, d time.Duration) TextGenerator {
	if d <= 0 {
		return g
	}
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return g.Generate(ctx, prompt)
	})
}
