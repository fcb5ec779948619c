package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/zkblueprint/internal/anthropic"
	"github.com/MikeSquared-Agency/zkblueprint/internal/llm"
)

const (
	ProviderAnthropic = "anthropic"

	DefaultRounds = 3
	DefaultDelay  = time.Second
)

type ClientConfig struct {
	Type   string
	APIKey string
	Model  string
}

type SystemConfig struct {
	Client ClientConfig
	Agents []Config
}

// NotFoundError is returned when a chain names an agent the system does not hold.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("agent %s not found", e.Name)
}

// DiscussionResult carries every message produced before the discussion
// ended. Error is set when a step failed.
type DiscussionResult struct {
	Messages []string `json:"messages"`
	Error    string   `json:"error,omitempty"`
}

// System owns a named set of agents sharing one provider. Agents are
// visited in registration order.
type System struct {
	provider llm.Provider
	logger   *slog.Logger
	order    []string
	agents   map[string]*Agent
}

// NewProvider builds the provider described by cfg.
func NewProvider(cfg ClientConfig) (llm.Provider, error) {
	switch cfg.Type {
	case "", ProviderAnthropic:
		c, err := anthropic.NewClient(cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("anthropic client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

// NewSystem builds one provider from cfg.Client and one agent per entry in
// cfg.Agents, all sharing that provider.
func NewSystem(cfg SystemConfig, logger *slog.Logger) (*System, error) {
	provider, err := NewProvider(cfg.Client)
	if err != nil {
		return nil, err
	}
	return NewSystemWithProvider(provider, cfg.Agents, logger), nil
}

func NewSystemWithProvider(provider llm.Provider, configs []Config, logger *slog.Logger) *System {
	s := &System{
		provider: provider,
		logger:   logger,
		agents:   make(map[string]*Agent, len(configs)),
	}
	for _, cfg := range configs {
		s.Register(cfg.Name, New(cfg, provider))
	}
	return s
}

// Provider returns the provider shared by agents built from configuration.
func (s *System) Provider() llm.Provider { return s.provider }

// Register adds a pre-built agent under name. Re-registering a name
// replaces the agent but keeps its original position.
func (s *System) Register(name string, a *Agent) {
	if _, ok := s.agents[name]; !ok {
		s.order = append(s.order, name)
	}
	s.agents[name] = a
}

func (s *System) Agent(name string) (*Agent, bool) {
	a, ok := s.agents[name]
	return a, ok
}

// Names returns the registered agent names in registration order.
func (s *System) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// ChainAgents runs each named agent in turn, feeding each raw reply to the
// next agent. Any failure discards all results.
func (s *System) ChainAgents(ctx context.Context, prompt string, sequence []string) ([]string, error) {
	responses := make([]string, 0, len(sequence))
	current := prompt

	for _, name := range sequence {
		a, ok := s.agents[name]
		if !ok {
			return nil, &NotFoundError{Name: name}
		}

		reply, err := a.Think(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}

		responses = append(responses, fmt.Sprintf("%s: %s", name, reply))
		current = reply
	}

	s.logger.Debug("chain complete", "agents", sequence, "steps", len(responses))
	return responses, nil
}

// FacilitateDiscussion passes the conversation round-robin across every
// agent for the given number of rounds, pausing delay between turns. On
// failure it returns what was said so far along with the error.
func (s *System) FacilitateDiscussion(ctx context.Context, topic string, rounds int, delay time.Duration) DiscussionResult {
	discussion := []string{}
	current := topic

	for round := 0; round < rounds; round++ {
		for _, name := range s.order {
			if len(discussion) > 0 && delay > 0 {
				if err := sleep(ctx, delay); err != nil {
					return s.failDiscussion(discussion, err)
				}
			}

			reply, err := s.agents[name].Think(ctx, current)
			if err != nil {
				return s.failDiscussion(discussion, fmt.Errorf("agent %s: %w", name, err))
			}

			discussion = append(discussion, fmt.Sprintf("%s: %s", name, reply))
			current = reply
		}
	}

	return DiscussionResult{Messages: discussion}
}

func (s *System) failDiscussion(discussion []string, err error) DiscussionResult {
	s.logger.Warn("discussion stopped", "messages", len(discussion), "error", err)
	return DiscussionResult{Messages: discussion, Error: err.Error()}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
