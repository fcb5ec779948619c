package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/zkblueprint/internal/agent"
	"github.com/MikeSquared-Agency/zkblueprint/internal/config"
	"github.com/MikeSquared-Agency/zkblueprint/internal/llm"
	"github.com/MikeSquared-Agency/zkblueprint/internal/metrics"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "zkblueprint",
		Short: "Turn an extraction goal and a sample email into zk-email regex blueprints",
		Long: `zkblueprint chains LLM agents to refine an extraction goal, pull the
relevant parts out of a sample email and generate regex patterns for
zero-knowledge email circuits.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")
	rootCmd.PersistentFlags().String("agents-file", "", "YAML agent roster; defaults to ZKBLUEPRINT_AGENTS_FILE or the built-in roster")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(agentsCmd())
	rootCmd.AddCommand(chainCmd())
	rootCmd.AddCommand(discussCmd())
	rootCmd.AddCommand(blueprintCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration, applies flag overrides and configures logging.
func setup(cmd *cobra.Command) (config.Config, agent.Roster, error) {
	cfg := config.Load()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if path, _ := cmd.Flags().GetString("agents-file"); path != "" {
		cfg.AgentsFile = path
	}
	// Keep stdout clean for command output; the server logs to stdout.
	logOut := os.Stderr
	if cmd.Name() == "serve" {
		logOut = os.Stdout
	}
	setupLogging(cfg.LogLevel, logOut)

	roster, err := agent.LoadRoster(cfg.AgentsFile)
	if err != nil {
		return cfg, agent.Roster{}, fmt.Errorf("load agent roster: %w", err)
	}
	return cfg, roster, nil
}

// newProvider builds the shared provider: the Anthropic client, paced by
// the configured rate limit and optionally instrumented.
func newProvider(cfg config.Config, m *metrics.Metrics) (llm.Provider, error) {
	p, err := agent.NewProvider(agent.ClientConfig{
		Type:   agent.ProviderAnthropic,
		APIKey: cfg.AnthropicAPIKey,
		Model:  cfg.AnthropicModel,
	})
	if err != nil {
		return nil, err
	}
	p = llm.WithRateLimit(p, cfg.RequestsPerMin)
	if m != nil {
		p = m.Instrument(p)
	}
	return p, nil
}

func setupLogging(level string, w io.Writer) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
