package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/zkblueprint/internal/api"
	"github.com/MikeSquared-Agency/zkblueprint/internal/hermes"
	"github.com/MikeSquared-Agency/zkblueprint/internal/metrics"
	"github.com/MikeSquared-Agency/zkblueprint/internal/processor"
	"github.com/MikeSquared-Agency/zkblueprint/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, roster, err := setup(cmd)
	if err != nil {
		return err
	}

	slog.Info("zkblueprint starting", "port", cfg.Port, "version", version)

	ctx := cmd.Context()

	m := metrics.New()

	// Anthropic client
	provider, err := newProvider(cfg, m)
	if err != nil {
		return err
	}
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel, "requests_per_minute", cfg.RequestsPerMin)

	opts := []api.Option{api.WithMetrics(m)}

	// Run store (optional)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		opts = append(opts, api.WithRunStore(db))
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, runs will not be recorded")
	}

	// NATS (optional)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			return err
		}
		defer hermesClient.Close()
		opts = append(opts, api.WithEvents(hermesClient))
		slog.Info("NATS connected", "url", cfg.NatsURL)

		proc := processor.New(provider, roster, hermesClient, slog.Default())
		if err := hermesClient.Subscribe(processor.SubjectBlueprintRequested, proc.HandleBlueprintRequested); err != nil {
			return err
		}
	}

	srv := api.NewServer(cfg.Port, provider, roster, slog.Default(), opts...)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("zkblueprint ready", "port", cfg.Port, "agents", len(roster.Agents))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("HTTP server error", "error", err)
		return err
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown incomplete", "error", err)
	}
	slog.Info("zkblueprint stopped")
	return nil
}
