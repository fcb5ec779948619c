// Package processor serves blueprint requests arriving over NATS.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/zkblueprint/internal/agent"
	"github.com/MikeSquared-Agency/zkblueprint/internal/blueprint"
	"github.com/MikeSquared-Agency/zkblueprint/internal/llm"
)

const (
	SubjectBlueprintRequested = "zkblueprint.blueprint.requested"
	SubjectBlueprintCompleted = "zkblueprint.blueprint.completed"
	SubjectBlueprintFailed    = "zkblueprint.blueprint.failed"

	requestTimeout = 5 * time.Minute
)

// Publisher is the subset of the NATS client the processor needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// BlueprintRequest is the payload on SubjectBlueprintRequested.
type BlueprintRequest struct {
	RequestID    string `json:"request_id"`
	Goal         string `json:"goal"`
	Instructions string `json:"instructions,omitempty"`
	RegexPrompt  string `json:"regex_prompt,omitempty"`
	Email        string `json:"email"`
}

// BlueprintResult is published once a request finishes.
type BlueprintResult struct {
	RequestID string               `json:"request_id"`
	Blueprint *blueprint.Blueprint `json:"blueprint,omitempty"`
	Stage     string               `json:"stage,omitempty"`
	Error     string               `json:"error,omitempty"`
}

type Processor struct {
	provider llm.Provider
	roster   agent.Roster
	events   Publisher
	logger   *slog.Logger
}

func New(provider llm.Provider, roster agent.Roster, events Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		provider: provider,
		roster:   roster,
		events:   events,
		logger:   logger,
	}
}

// HandleBlueprintRequested is the NATS handler for zkblueprint.blueprint.requested.
func (p *Processor) HandleBlueprintRequested(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var req BlueprintRequest
	if err := json.Unmarshal(data, &req); err != nil {
		p.logger.Error("failed to parse blueprint request", "error", err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	p.logger.Info("processing blueprint request", "request_id", req.RequestID)

	// Every request gets its own agents.
	sys := agent.NewSystemWithProvider(p.provider, p.roster.Agents, p.logger)
	bp, err := blueprint.New(sys, p.logger).Run(ctx, blueprint.Input{
		Goal:         req.Goal,
		Instructions: req.Instructions,
		RegexPrompt:  req.RegexPrompt,
		Email:        req.Email,
	})

	result := BlueprintResult{RequestID: req.RequestID}
	subjectOut := SubjectBlueprintCompleted
	if err != nil {
		subjectOut = SubjectBlueprintFailed
		result.Error = err.Error()
		var se *blueprint.StageError
		if errors.As(err, &se) {
			result.Stage = string(se.Stage)
		}
		p.logger.Error("blueprint request failed", "request_id", req.RequestID, "error", err)
	} else {
		result.Blueprint = bp
		p.logger.Info("blueprint request processed", "request_id", req.RequestID)
	}

	if err := p.events.Publish(subjectOut, result); err != nil {
		p.logger.Error("failed to publish blueprint result", "request_id", req.RequestID, "error", err)
	}
}
