package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/kira/internal/simulate"
	"github.com/okian/kira/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := simulate.DefaultConfig()
	var (
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "kira-sim",
		Short: "Drive the engagement service with synthetic traffic",
		Long: `Generate mixed twitter, telegram and discord engagement events, submit them
to a running service through POST /events/batch at a paced rate, wait for the
ingest queue to drain and verify the leaderboard.

Redeliveries are mixed in with --duplicates so deduplication is exercised.
--check-totals also compares every verified total with the points the
generated events should add up to; only use it against a fresh service
running the base weight tables.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat), logger.WithLevel(logLevel), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			rep, err := simulate.NewRunner(cfg, logger.Get().Named("simulate")).Run(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(rep); encErr != nil && err == nil {
				err = encErr
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.BaseURL, "url", "u", cfg.BaseURL, "Base URL of the service")
	f.IntVarP(&cfg.Events, "events", "n", cfg.Events, "Number of distinct events to generate")
	f.IntVar(&cfg.Users, "users", cfg.Users, "Size of the user pool")
	f.Float64Var(&cfg.DuplicateRatio, "duplicates", cfg.DuplicateRatio, "Extra redeliveries as a share of events")
	f.Float64Var(&cfg.BonusChance, "bonus-chance", cfg.BonusChance, "Chance a twitter event carries an engagement bonus")
	f.DurationVar(&cfg.Spread, "spread", cfg.Spread, "Spread occurred_at over this long before now")
	f.Float64VarP(&cfg.Rate, "rate", "r", cfg.Rate, "Events per second, 0 for unpaced")
	f.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "Events per batch request")
	f.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Concurrent submitters")
	f.IntVar(&cfg.TopN, "top", cfg.TopN, "Leaderboard entries to verify")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&cfg.Settle, "settle", cfg.Settle, "How long to wait for the queue to drain")
	f.Uint64Var(&cfg.Seed, "seed", 0, "Generator seed, 0 picks one from the clock")
	f.BoolVar(&cfg.CheckTotals, "check-totals", false, "Compare totals with the expected points")
	f.StringVarP(&cfg.OutputFile, "output", "o", "", "Write submitted events to this JSONL file")
	f.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	return cmd
}
