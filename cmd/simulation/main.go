// Command simulation replays scripted conversations against the in-memory
// engine and can tail lifecycle events relayed to NATS.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ai-networking-be/internal/bootstrap"
	"ai-networking-be/internal/config"
	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/pkg/classifier"
	"ai-networking-be/pkg/events"
	pktNats "ai-networking-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "simulation",
		Short:         "Drive the contact assembly engine from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd(), newTailCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var useLLM bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Replay scenarios and check their expectations",
		Long: `Replay one or more YAML scenarios against a fresh in-memory stack.
Time only advances through "wait" steps, and "sweep" steps run one sweeper tick,
so timeout behaviour is reproducible. Thresholds come from the usual SESSION_* env.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}

			var cls classifier.Classifier = classifier.NewRuleClassifier()
			if useLLM {
				cls = bootstrap.NewClassifier(cfg, logger.NewNopLogger())
			}

			runner := NewRunner(cfg, cls, cmd.OutOrStdout())
			failed := 0
			for _, path := range args {
				sc, err := LoadScenario(path)
				if err != nil {
					return err
				}
				failures, err := runner.Run(cmd.Context(), sc)
				if err != nil {
					return err
				}
				if len(failures) > 0 {
					failed++
					color.New(color.FgRed, color.Bold).Fprintf(cmd.OutOrStdout(), "FAIL %s (%d)\n\n", sc.Name, len(failures))
					continue
				}
				color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "PASS %s\n\n", sc.Name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useLLM, "llm", false, "classify with the configured LLM provider instead of rules")
	return cmd
}

func newTailCmd() *cobra.Command {
	var (
		natsURL string
		subject string
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print lifecycle events relayed to NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sub, err := pktNats.NewSubscriber(natsURL, logger.NewNopLogger())
			if err != nil {
				return err
			}
			defer sub.Close()

			typeColor := color.New(color.FgCyan)
			return sub.Subscribe(ctx, subject, "", func(_ context.Context, env events.Envelope) error {
				data, err := json.Marshal(env.Data)
				if err != nil {
					return err
				}
				typeColor.Fprintf(cmd.OutOrStdout(), "%s %-24s", env.OccurredAt.Format("15:04:05"), env.Type)
				fmt.Fprintf(cmd.OutOrStdout(), " %s\n", data)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats-url", "nats://localhost:4222", "NATS server URL")
	cmd.Flags().StringVar(&subject, "subject", "events.contact.>", "subject filter")
	return cmd
}
