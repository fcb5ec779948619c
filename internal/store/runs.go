package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	KindChain      = "chain"
	KindDiscussion = "discussion"
	KindBlueprint  = "blueprint"
)

var ErrNotFound = errors.New("run not found")

// Run is one completed chain, discussion or blueprint request.
type Run struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Agents    []string  `json:"agents"`
	Prompt    string    `json:"prompt"`
	Results   []string  `json:"results"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordRun inserts run, assigning an ID and timestamp when unset.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	results := run.Results
	if results == nil {
		results = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_runs (id, kind, agents, prompt, results, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Kind, run.Agents, run.Prompt, results, run.Error, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, kind, agents, prompt, results, error, created_at
		FROM agent_runs WHERE id = $1`, id)

	var r Run
	err := row.Scan(&r.ID, &r.Kind, &r.Agents, &r.Prompt, &r.Results, &r.Error, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, agents, prompt, results, error, created_at
		FROM agent_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Kind, &r.Agents, &r.Prompt, &r.Results, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
