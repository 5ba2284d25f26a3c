package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/fedmkt/internal/arbitration"
	"github.com/sawpanic/fedmkt/internal/config"
	"github.com/sawpanic/fedmkt/internal/provider/adapters"
	"github.com/sawpanic/fedmkt/internal/registry"
	"github.com/sawpanic/fedmkt/internal/subscription"
	"github.com/sawpanic/fedmkt/internal/telemetry"
	"github.com/sawpanic/fedmkt/internal/transport/wsserver"
)

// adapterFactories is the full set of providers fedmktd knows how to
// construct, keyed by the name used in config/providers.yaml.
func adapterFactories() map[string]registry.Factory {
	return map[string]registry.Factory{
		"mock":         adapters.NewMock,
		"coingecko":    adapters.NewCoinGecko,
		"newsapi":      adapters.NewNewsAPI,
		"alphavantage": adapters.NewAlphaVantage,
		"fred":         adapters.NewFred,
		"polygon":      adapters.NewPolygon,
	}
}

func newServeCmd() *cobra.Command {
	var configPath string
	var addr string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the federation engine and WebSocket fan-out",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, addr, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config/providers.yaml", "Path to the adapter configuration file")
	cmd.Flags().StringVar(&addr, "addr", ":8090", "Address for the WebSocket fan-out endpoint")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Address for the Prometheus /metrics endpoint")
	return cmd
}

func runServe(ctx context.Context, configPath, addr, metricsAddr string) error {
	file, err := config.Load(configPath)
	if err != nil {
		return err
	}
	resolved := file.Resolve()

	reg := registry.New()
	if err := reg.Initialize(ctx, resolved, adapterFactories()); err != nil {
		return err
	}

	engine := arbitration.New(reg)
	manager := subscription.New(engine)
	handler := wsserver.New(manager)

	mux := http.NewServeMux()
	mux.Handle("/stream", handler)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Default.Handler())

	streamServer := &http.Server{Addr: addr, Handler: mux}
	metricsServer := &http.Server{Addr: metricsAddr, Handler: metricsMux}

	go func() {
		log.Info().Str("addr", addr).Msg("fedmktd: serving WebSocket fan-out")
		if err := streamServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("fedmktd: stream server failed")
		}
	}()
	go func() {
		log.Info().Str("addr", metricsAddr).Msg("fedmktd: serving /metrics")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("fedmktd: metrics server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("fedmktd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = streamServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	return reg.Shutdown(shutdownCtx)
}
