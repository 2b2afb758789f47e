// Package upstream holds the capability interfaces the pipeline consumes
// for summaries, narration and scene images, and their tiered adapters.
//
// Adapters never return errors for an unavailable service. They return a
// Result tagged Degraded with the reason the fallback was taken.
package upstream

import (
	"context"
	"time"
)

// Result is a real value or a degraded fallback.
type Result[T any] struct {
	Value    T
	Degraded bool
	Reason   string
}

// Real wraps a value produced by the intended backend.
func Real[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fallback wraps a substitute value and why it was used.
func Fallback[T any](v T, reason string) Result[T] {
	return Result[T]{Value: v, Degraded: true, Reason: reason}
}

// Summarizer condenses a story into a short narration script.
type Summarizer interface {
	Summarize(ctx context.Context, text, inputLang, outputLang string) Result[string]
}

// Narrator turns text into an audio reference. The value may be the
// placeholder sentinel.
type Narrator interface {
	Synthesize(ctx context.Context, text, lang string) Result[string]
}

// ImageGenerator produces an image reference for one scene.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, description, lang string, ordinal int) Result[string]
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
