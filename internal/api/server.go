package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/zkblueprint/internal/agent"
	"github.com/MikeSquared-Agency/zkblueprint/internal/hermes"
	"github.com/MikeSquared-Agency/zkblueprint/internal/llm"
	"github.com/MikeSquared-Agency/zkblueprint/internal/metrics"
	"github.com/MikeSquared-Agency/zkblueprint/internal/store"
)

// RunStore records completed runs. *store.Store satisfies it.
type RunStore interface {
	RecordRun(ctx context.Context, run *store.Run) error
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// EventPublisher announces run outcomes. *hermes.Client satisfies it.
type EventPublisher interface {
	PublishRun(evt hermes.RunEvent) error
}

type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithRunStore(rs RunStore) Option {
	return func(s *Server) { s.runs = rs }
}

func WithEvents(p EventPublisher) Option {
	return func(s *Server) { s.events = p }
}

type Server struct {
	router   *chi.Mux
	srv      *http.Server
	provider llm.Provider
	roster   agent.Roster
	logger   *slog.Logger
	metrics  *metrics.Metrics
	runs     RunStore
	events   EventPublisher
}

func NewServer(port int, provider llm.Provider, roster agent.Roster, logger *slog.Logger, opts ...Option) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		provider: provider,
		roster:   roster,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)
	router.Route("/api/agents", func(r chi.Router) {
		r.Get("/", s.listAgents)
		r.Post("/", s.runAgent)
		r.Post("/chain", s.chainAgents)
		r.Post("/discuss", s.discuss)
	})
	router.Post("/api/blueprint", s.generateBlueprint)
	if s.runs != nil {
		router.Get("/api/runs", s.listRuns)
	}
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler())
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// newSystem builds a fresh set of agents for one request so concurrent
// requests never share conversation history.
func (s *Server) newSystem() *agent.System {
	return agent.NewSystemWithProvider(s.provider, s.roster.Agents, s.logger)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) observe(route, agentName string, code int) {
	if s.metrics != nil {
		s.metrics.ObserveAPI(route, agentName, code)
	}
}

// recordRun stores and announces a run. Failures are logged, not returned.
func (s *Server) recordRun(ctx context.Context, run *store.Run) {
	ctx = context.WithoutCancel(ctx)
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if s.runs != nil {
		if err := s.runs.RecordRun(ctx, run); err != nil {
			s.logger.Warn("failed to record run", "kind", run.Kind, "error", err)
		}
	}
	if s.events != nil {
		evt := hermes.RunEvent{
			RunID:     run.ID.String(),
			Kind:      run.Kind,
			Agents:    run.Agents,
			Steps:     len(run.Results),
			Error:     run.Error,
			Timestamp: time.Now().UTC(),
		}
		if err := s.events.PublishRun(evt); err != nil {
			s.logger.Warn("failed to publish run event", "kind", run.Kind, "error", err)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
