// Package llm defines the boundary between the agent layer and hosted
// chat-completion providers.
package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params are the decoding parameters sent with every request.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Provider sends one completion request and returns the generated text.
// An empty string with a nil error means the provider produced no text.
type Provider interface {
	Send(ctx context.Context, system string, messages []Message, params Params) (string, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, system string, messages []Message, params Params) (string, error)

func (f ProviderFunc) Send(ctx context.Context, system string, messages []Message, params Params) (string, error) {
	return f(ctx, system, messages, params)
}

type rateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithRateLimit paces calls to inner at perMinute requests per minute.
// perMinute <= 0 returns inner unchanged.
func WithRateLimit(inner Provider, perMinute int) Provider {
	if perMinute <= 0 {
		return inner
	}
	return &rateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
	}
}

func (r *rateLimited) Send(ctx context.Context, system string, messages []Message, params Params) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("rate limit wait: %w", ctxErr)
		}
		// The limiter refuses up front when the wait would outlast the deadline.
		if _, ok := ctx.Deadline(); ok {
			return "", fmt.Errorf("rate limit wait: %w: %v", context.DeadlineExceeded, err)
		}
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.inner.Send(ctx, system, messages, params)
}
