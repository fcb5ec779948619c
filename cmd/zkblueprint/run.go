package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/zkblueprint/internal/agent"
	"github.com/MikeSquared-Agency/zkblueprint/internal/blueprint"
)

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the configured agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, roster, err := setup(cmd)
			if err != nil {
				return err
			}
			for _, a := range roster.Agents {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", a.Name, a.Role)
			}
			return nil
		},
	}
}

// newSystem wires the roster to a live provider for one CLI invocation.
func newSystem(cmd *cobra.Command) (*agent.System, error) {
	cfg, roster, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(cfg, nil)
	if err != nil {
		return nil, err
	}
	return agent.NewSystemWithProvider(provider, roster.Agents, slog.Default()), nil
}

func chainCmd() *cobra.Command {
	var agents []string

	cmd := &cobra.Command{
		Use:   "chain [prompt]",
		Short: "Pipe a prompt through a sequence of agents",
		Example: `  zkblueprint chain --agents promptRefiner "prove I received an invoice from acme.com"
  zkblueprint chain --agents promptRefiner,partsExtractor,regexGenerator "$(cat goal.txt)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := newSystem(cmd)
			if err != nil {
				return err
			}
			results, err := sys.ChainAgents(cmd.Context(), args[0], agents)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&agents, "agents", "a", []string{string(agent.PromptRefiner)}, "Agents to run, in order")
	return cmd
}

func discussCmd() *cobra.Command {
	var (
		rounds int
		delay  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "discuss [topic]",
		Short: "Pass a topic round-robin across every agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := newSystem(cmd)
			if err != nil {
				return err
			}
			res := sys.FacilitateDiscussion(cmd.Context(), args[0], rounds, delay)
			for _, m := range res.Messages {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			if res.Error != "" {
				return fmt.Errorf("discussion stopped after %d messages: %s", len(res.Messages), res.Error)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&rounds, "rounds", "r", agent.DefaultRounds, "Number of full passes over the agents")
	cmd.Flags().DurationVar(&delay, "delay", agent.DefaultDelay, "Pause between turns")
	return cmd
}

func blueprintCmd() *cobra.Command {
	var (
		goal         string
		emlPath      string
		instructions string
		regexPrompt  string
	)

	cmd := &cobra.Command{
		Use:   "blueprint",
		Short: "Run the full refine, extract and generate pipeline",
		Example: `  zkblueprint blueprint --goal "reveal the order number, hide the recipient" --eml receipt.eml`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(emlPath)
			if err != nil {
				return fmt.Errorf("open eml: %w", err)
			}
			email, err := blueprint.ReadEML(f)
			f.Close()
			if err != nil {
				return err
			}

			sys, err := newSystem(cmd)
			if err != nil {
				return err
			}
			bp, err := blueprint.New(sys, slog.Default()).Run(cmd.Context(), blueprint.Input{
				Goal:         goal,
				Instructions: instructions,
				RegexPrompt:  regexPrompt,
				Email:        email,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(bp)
		},
	}
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "What to extract, in plain words")
	cmd.Flags().StringVarP(&emlPath, "eml", "e", "", "Path to a sample .eml file")
	cmd.Flags().StringVar(&instructions, "instructions", "", "Override the refined prompt for part extraction")
	cmd.Flags().StringVar(&regexPrompt, "regex-prompt", "", "Override the refined prompt for regex generation")
	_ = cmd.MarkFlagRequired("goal")
	_ = cmd.MarkFlagRequired("eml")
	return cmd
}

