package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/di"
	"github.com/mikey/phishguard/internal/factory"
	"github.com/mikey/phishguard/internal/metrics"
	"github.com/mikey/phishguard/internal/ports"
	"github.com/mikey/phishguard/internal/rules"
)

func main() {
	// API keys usually come from a .env file next to the binary
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

type deps struct {
	dig.In

	Config       *config.Config
	Logger       *zap.Logger
	Filter       ports.EmailFilter
	Holder       *rules.Holder
	Rules        *factory.RulesFactory
	Store        core.TrustStore
	Stores       *factory.StoreFactory
	Cache        factory.ResultCache
	DeepScanners *factory.DeepScanFactory
}

// run is the main application function that gets all dependencies injected
func run(d deps) error {
	logger := d.Logger
	defer logger.Sync()

	if err := d.Rules.StartWatching(d.Holder); err != nil {
		logger.Warn("Rules hot reload disabled", zap.Error(err))
	}

	// Start the filter
	if err := d.Filter.Start(); err != nil {
		logger.Error("Failed to start filter", zap.Error(err))
		return err
	}

	metricsSrv := startMetrics(d.Config, logger)

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := d.Filter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	if metricsSrv != nil {
		if err := metricsSrv.Close(); err != nil {
			logger.Error("Failed to stop metrics server", zap.Error(err))
		}
	}

	if d.Cache != nil {
		d.Cache.Stop()
	}

	if err := d.DeepScanners.Close(); err != nil {
		logger.Error("Failed to close deep scan client", zap.Error(err))
	}

	// SQL stores share the factory's database, which is closed below
	if closer, ok := d.Store.(io.Closer); ok && d.Config.GetStore().Type == "redis" {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close trust store", zap.Error(err))
		}
	}
	if err := d.Stores.Close(); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}

// startMetrics serves /metrics on its own port. The HTTP front end already
// exposes it on the API router.
func startMetrics(cfg *config.Config, logger *zap.Logger) *http.Server {
	metricsCfg := cfg.GetMetrics()
	if !metricsCfg.Enabled || cfg.GetServer().FilterType == "http" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              metricsCfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Metrics listening", zap.String("address", metricsCfg.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()
	return srv
}
