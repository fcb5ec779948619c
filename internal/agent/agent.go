// Package agent implements persona-bound LLM agents and the system that
// chains them into pipelines and round-robin discussions.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MikeSquared-Agency/zkblueprint/internal/llm"
)

const (
	// historyWindow is how many prior history entries are replayed per call.
	historyWindow = 5

	maxTokens   = 1000
	temperature = 0
)

// Config describes one agent. It is not modified after construction.
type Config struct {
	Name         string `yaml:"name" json:"name"`
	Role         string `yaml:"role" json:"role"`
	SystemPrompt string `yaml:"system_prompt,omitempty" json:"systemPrompt,omitempty"`
}

// ProviderError wraps a failed provider call.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return "Provider API Error: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

type Agent struct {
	cfg      Config
	provider llm.Provider

	mu      sync.Mutex
	history []llm.Message
}

func New(cfg Config, provider llm.Provider) *Agent {
	return &Agent{cfg: cfg, provider: provider}
}

func (a *Agent) Name() string { return a.cfg.Name }
func (a *Agent) Role() string { return a.cfg.Role }

func (a *Agent) persona() string {
	return fmt.Sprintf("You are %s, a %s. Respond concisely and stay in character.", a.cfg.Name, a.cfg.Role)
}

// SystemInstruction is the system prompt sent with every call. When no
// system prompt is configured the persona sentence stands in for it.
func (a *Agent) SystemInstruction() string {
	prompt := a.cfg.SystemPrompt
	if prompt == "" {
		prompt = a.persona()
	}
	return a.persona() + " " + prompt
}

// Think sends message to the provider, replaying the most recent history
// entries as context, and records the exchange on success.
func (a *Agent) Think(ctx context.Context, message string) (string, error) {
	a.mu.Lock()
	start := max(len(a.history)-historyWindow, 0)
	messages := make([]llm.Message, 0, len(a.history)-start+1)
	messages = append(messages, a.history[start:]...)
	a.mu.Unlock()

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	reply, err := a.provider.Send(ctx, a.SystemInstruction(), messages, llm.Params{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &ProviderError{Err: err}
	}

	a.mu.Lock()
	a.history = append(a.history,
		llm.Message{Role: llm.RoleUser, Content: message},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)
	a.mu.Unlock()

	return reply, nil
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]llm.Message, len(a.history))
	copy(out, a.history)
	return out
}
