package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/feedstudy/rankfeed/internal/httpserver"
	"github.com/feedstudy/rankfeed/internal/metrics"
	"github.com/feedstudy/rankfeed/internal/progress"
)

// newServeCmd builds the `serve` subcommand: health/metrics/progress
// over HTTP for operators, grounded on the teacher's
// cmd/cryptorun/monitor_main.go. The session cadence itself stays
// external (spec §1 non-goals); serve only exposes the ops surface a
// scheduler or dashboard watches.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics, and live session progress over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			_ = metrics.New(reg)
			hub := progress.NewHub(log.Logger)

			cfg := httpserver.DefaultConfig()
			if addr != "" {
				cfg.Addr = addr
			}

			srv := httpserver.New(cfg, reg, hub, nil, log.Logger)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received")
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("ops server: %w", err)
				}
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default 127.0.0.1:8080)")
	return cmd
}
