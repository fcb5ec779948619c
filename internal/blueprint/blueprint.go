// Package blueprint runs the three-stage refine, extract and generate
// pipeline that turns an extraction goal and a sample email into regex
// patterns.
package blueprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/MikeSquared-Agency/zkblueprint/internal/agent"
)

var (
	ErrEmptyGoal  = errors.New("goal is required")
	ErrEmptyEmail = errors.New("email content is required")
)

// StageError reports which stage of the pipeline failed.
type StageError struct {
	Stage agent.Name
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type Generator struct {
	system *agent.System
	logger *slog.Logger
}

// New returns a generator driving the pipeline agents held by sys.
func New(sys *agent.System, logger *slog.Logger) *Generator {
	return &Generator{system: sys, logger: logger}
}

// Run executes all three stages in order. Each stage's labelled output
// ("promptRefiner: ...") is what the next stage receives.
func (g *Generator) Run(ctx context.Context, in Input) (*Blueprint, error) {
	if strings.TrimSpace(in.Goal) == "" {
		return nil, ErrEmptyGoal
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, ErrEmptyEmail
	}

	g.logger.Info("generating blueprint",
		"goal_len", len(in.Goal),
		"email_len", len(in.Email),
	)

	refined, err := g.Refine(ctx, in.Goal)
	if err != nil {
		return nil, err
	}

	instructions := in.Instructions
	if instructions == "" {
		instructions = refined
	}
	parts, err := g.ExtractParts(ctx, instructions, in.Email)
	if err != nil {
		return nil, err
	}

	regexPrompt := in.RegexPrompt
	if regexPrompt == "" {
		regexPrompt = refined
	}
	patterns, err := g.GenerateRegex(ctx, parts, regexPrompt)
	if err != nil {
		return nil, err
	}

	g.logger.Info("blueprint complete",
		"refined_len", len(refined),
		"parts_len", len(parts),
		"patterns_len", len(patterns),
	)

	return &Blueprint{
		RefinedPrompt: refined,
		Parts:         parts,
		Patterns:      patterns,
	}, nil
}

// Refine rewrites a free-text goal into a precise extraction prompt.
func (g *Generator) Refine(ctx context.Context, goal string) (string, error) {
	return g.stage(ctx, agent.PromptRefiner, goal)
}

// ExtractParts asks for the raw email lines relevant to instructions.
func (g *Generator) ExtractParts(ctx context.Context, instructions, email string) (string, error) {
	doc, err := json.Marshal(partsRequest{Instructions: instructions, FileContent: email})
	if err != nil {
		return "", fmt.Errorf("marshal parts request: %w", err)
	}
	return g.stage(ctx, agent.PartsExtractor, string(doc))
}

// GenerateRegex asks for regex patterns covering the extracted parts.
func (g *Generator) GenerateRegex(ctx context.Context, parts, refinedPrompt string) (string, error) {
	doc, err := json.Marshal(regexRequest{Parts: parts, RefinedPrompt: refinedPrompt})
	if err != nil {
		return "", fmt.Errorf("marshal regex request: %w", err)
	}
	return g.stage(ctx, agent.RegexGenerator, string(doc))
}

// stage runs name as a single-agent chain and returns its one labelled result.
func (g *Generator) stage(ctx context.Context, name agent.Name, prompt string) (string, error) {
	result, err := g.system.ChainAgents(ctx, prompt, []string{string(name)})
	if err != nil {
		g.logger.Error("blueprint stage failed", "stage", name, "error", err)
		return "", &StageError{Stage: name, Err: err}
	}
	return result[0], nil
}

// ReadEML reads a raw .eml message, checking that it carries a parseable
// header block, and returns its text unchanged.
func ReadEML(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read eml: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", ErrEmptyEmail
	}
	if _, err := mail.ReadMessage(strings.NewReader(string(data))); err != nil {
		return "", fmt.Errorf("parse eml: %w", err)
	}
	return string(data), nil
}
