package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/fedmkt/internal/config"
	"github.com/sawpanic/fedmkt/internal/registry"
)

// newProvidersCmd groups provider-introspection subcommands.
func newProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect configured data providers",
	}
	cmd.AddCommand(newProvidersProbeCmd())
	return cmd
}

func newProvidersProbeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Initialize every configured adapter and report its health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvidersProbe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config/providers.yaml", "Path to the adapter configuration file")
	return cmd
}

func runProvidersProbe(ctx context.Context, configPath string) error {
	file, err := config.Load(configPath)
	if err != nil {
		return err
	}
	resolved := file.Resolve()

	reg := registry.New()
	if err := reg.Initialize(ctx, resolved, adapterFactories()); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = reg.Shutdown(shutdownCtx)
	}()

	// A plain pipe (CI logs, `| tee`) gets bare rows; an interactive
	// terminal gets a header line to read the columns by.
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("%-15s %-12s %-18s %s\n", "PROVIDER", "HEALTHY", "SUCCESS_RATE", "UPTIME_24H")
	}

	for name, adapter := range reg.Providers() {
		health, err := adapter.GetHealth(ctx)
		if err != nil {
			fmt.Printf("%-15s ERROR: %v\n", name, err)
			continue
		}
		fmt.Printf("%-15s healthy=%-5t success_rate=%.2f uptime_24h=%.2f\n",
			name, health.Healthy, health.SuccessRate, health.Uptime24h)
	}
	return nil
}
