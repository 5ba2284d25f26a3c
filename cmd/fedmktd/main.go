// Command fedmktd runs the market data federation engine: it loads the
// adapter configuration, builds the provider registry and arbitration
// engine, and serves the real-time subscription fan-out over WebSocket.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/fedmkt/internal/telemetry"
)

const (
	appName = "fedmktd"
	version = "v0.1.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	telemetry.Init()

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Market data federation engine",
		Version: version,
		Long: `fedmktd federates market data across heterogeneous third-party
providers: it arbitrates which provider to ask, executes with fallback,
merges agreeing responses, and streams updates to subscribed clients.`,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newProvidersCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("fedmktd exited with error")
		os.Exit(1)
	}
}
