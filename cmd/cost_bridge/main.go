// cost_bridge prices the stored meter consumption and publishes the costs to Home Assistant.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/bridge"
	"github.com/NotCoffee418/esm_costs/pkg/config"
	"github.com/NotCoffee418/esm_costs/pkg/haws"
	"github.com/NotCoffee418/esm_costs/pkg/logging"
	"github.com/NotCoffee418/esm_costs/pkg/meterdb"
	"github.com/NotCoffee418/esm_costs/pkg/metrics"
	"github.com/NotCoffee418/esm_costs/pkg/pathing"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	if err := pathing.EnsureDirs(); err != nil {
		logging.Sugar.Fatalf("Failed to create directories: %v", err)
	}

	// Load config
	if err := config.LoadCostBridgeConfig(); err != nil {
		logging.Sugar.Fatalf("Failed to load cost bridge config: %v", err)
	}
	cfg := config.ActiveCostBridgeConfig

	if err := logging.Initialize(cfg.Logging); err != nil {
		logging.Sugar.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Sync()
	logger := logging.Named("cost_bridge")

	if err := config.EnsureTariffFile(cfg.TariffFile); err != nil {
		logger.Fatal("failed to write default tariff", zap.Error(err))
	}
	t, err := config.LoadTariff(cfg.TariffFile)
	if err != nil {
		logger.Fatal("failed to load tariff", zap.String("file", cfg.TariffFile), zap.Error(err))
	}
	logger.Info("tariff loaded",
		zap.String("file", cfg.TariffFile),
		zap.Strings("components", t.Components.Names()))

	dbPath := cfg.DbPath
	if dbPath == "" {
		dbPath = pathing.GetMeterDbPath()
	}
	store, err := meterdb.Open(dbPath)
	if err != nil {
		logger.Fatal("failed to open meter database", zap.Error(err))
	}
	defer store.Close()
	metrics.Init(store.DB(), logger)

	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server := &http.Server{Addr: cfg.MetricsAddress, Handler: mux}
		go func() {
			logger.Info("serving metrics", zap.String("listen", cfg.MetricsAddress))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()
	}

	b, err := bridge.New(cfg, t, store, haws.New(cfg.HomeAssistant, logger), logger)
	if err != nil {
		logger.Fatal("invalid device configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil {
		logger.Error("cost bridge stopped", zap.Error(err))
		logging.Sync()
		os.Exit(1)
	}
	logger.Info("cost bridge stopped")
}
