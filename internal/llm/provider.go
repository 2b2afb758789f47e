package llm

import (
	"context"
	"errors"
	"time"
)

// ErrDisabled is returned by providers that were configured without credentials.
var ErrDisabled = errors.New("llm provider disabled")

// Provider abstracts different LLM providers (Claude, Gemini, OpenAI, OpenRouter)
type Provider interface {
	// Name returns the provider name
	Name() string

	// IsEnabled returns whether the provider is configured with valid credentials
	IsEnabled() bool

	// Complete sends a single-turn prompt and returns the generated text
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is a single system + user exchange
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// WithTimeout bounds ctx by timeout when it is positive.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Each provider package (providers/claude, providers/gemini, providers/openai,
// providers/openrouter) exports a NewProvider function that the command wires
// up directly to avoid import cycles.
