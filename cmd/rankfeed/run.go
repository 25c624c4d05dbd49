package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/feedstudy/rankfeed"
	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/metrics"
	"github.com/feedstudy/rankfeed/internal/orchestrator"
)

// newRunCmd builds the `run` subcommand: one Orchestrator.Run call,
// reproducing original_source/services/rank_score_feeds/helper.py's
// do_rank_score_feeds thin wrapper (SPEC_FULL "Supplemented features" 3).
func newRunCmd() *cobra.Command {
	var usersFilter []string
	var exportNewScores bool
	var testMode bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one feed-generation session end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			reg := metrics.New(prometheus.DefaultRegisterer)

			deps, closeFn, err := rankfeed.BuildDependencies(cfg, log.Logger, reg, nil)
			if err != nil {
				return fmt.Errorf("build dependencies: %w", err)
			}
			defer closeFn()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			orch := orchestrator.New(deps)
			analytics, err := orch.Run(ctx, usersFilter, exportNewScores, testMode)
			if err != nil {
				return fmt.Errorf("session failed: %w", err)
			}

			log.Info().
				Int("total_feeds", analytics.TotalFeeds).
				Int("total_posts", analytics.TotalPosts).
				Str("session_timestamp", analytics.SessionTimestamp).
				Msg("session completed")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&usersFilter, "users", nil, "restrict the session to these participant handles")
	cmd.Flags().BoolVar(&exportNewScores, "export-new-scores", true, "persist newly computed scores")
	cmd.Flags().BoolVar(&testMode, "test-mode", false, "skip TTL/session-metadata and restrict to test users")

	return cmd
}
