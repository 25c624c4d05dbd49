// Command rankfeed runs the personalized feed ranking engine: one
// orchestrated session per invocation of `run`, or an ops HTTP server
// via `serve`. Grounded on the teacher's cmd/cryptorun/main.go (TTY
// detection for console-vs-JSON logging, a cobra root command plus
// subcommands) and its monitor_main.go (health/metrics server).
package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "rankfeed"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	root := &cobra.Command{
		Use:     appName,
		Short:   "Personalized feed ranking engine",
		Version: version,
		Long: `rankfeed generates length-bounded, deduplicated, freshness-aware
feeds for study participants across three experimental conditions
(reverse_chronological, engagement, representative_diversification),
one batch session at a time.`,
	}

	root.PersistentFlags().String("config", "", "path to YAML config file (defaults apply if unset)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("rankfeed exited with error")
	}
}
