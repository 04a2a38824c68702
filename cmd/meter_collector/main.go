// meter_collector reads the P1 port, stores meter totals and rebroadcasts live readings.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/aggregator"
	"github.com/NotCoffee418/esm_costs/pkg/config"
	"github.com/NotCoffee418/esm_costs/pkg/livefeed"
	"github.com/NotCoffee418/esm_costs/pkg/logging"
	"github.com/NotCoffee418/esm_costs/pkg/meterdb"
	"github.com/NotCoffee418/esm_costs/pkg/metrics"
	"github.com/NotCoffee418/esm_costs/pkg/p1"
	"github.com/NotCoffee418/esm_costs/pkg/pathing"
	"github.com/NotCoffee418/esm_costs/pkg/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	if err := pathing.EnsureDirs(); err != nil {
		logging.Sugar.Fatalf("Failed to create directories: %v", err)
	}

	// Load config
	if err := config.LoadMeterCollectorConfig(); err != nil {
		logging.Sugar.Fatalf("Failed to load meter collector config: %v", err)
	}
	cfg := config.ActiveMeterCollectorConfig

	if err := logging.Initialize(cfg.Logging); err != nil {
		logging.Sugar.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Sync()
	logger := logging.Named("meter_collector")

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := livefeed.NewHub(logger)
	handleReading := func(reading *types.MeterReading) {
		hub.Broadcast(reading)
		if err := store.RecordReading(ctx, reading); err != nil {
			logger.Error("failed to store reading", zap.Error(err))
			return
		}
		metrics.IncReadingStored(string(meterdb.Electricity))
		if reading.MeterSerialGas != "" || reading.GasConsumptionM3 != 0 {
			metrics.IncReadingStored(string(meterdb.Gas))
		}
		logger.Debug("stored reading", zap.Float64("current_consumption_kw", reading.CurrentConsumptionKW))
	}

	go aggregator.Run(ctx, store, logger)

	// Setup HTTP handlers
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "European Smart Meter Collector",
			"status":  "running",
		})
	})
	mux.HandleFunc("/latest", hub.ServeLatest)
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/metrics", metrics.Handler())

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	server := &http.Server{Addr: listener, Handler: mux}
	go func() {
		logger.Info("starting meter collector API", zap.String("listen", listener))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Read from the serial port, or from another collector's live feed
	if cfg.RemoteFeed != "" {
		err = livefeed.Listen(ctx, cfg.RemoteFeed, handleReading, logger)
	} else {
		err = p1.NewReader(cfg.SerialDevice, cfg.Baudrate, logger).Start(ctx, handleReading)
	}
	if err != nil {
		logger.Error("meter source stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}
	logger.Info("meter collector stopped")
}
