package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/signal_level_engine/internal/config"
	"github.com/vitos/signal_level_engine/internal/domain"
	"github.com/vitos/signal_level_engine/internal/infrastructure/feed"
	"github.com/vitos/signal_level_engine/internal/infrastructure/gateway"
	"github.com/vitos/signal_level_engine/internal/infrastructure/logger"
	"github.com/vitos/signal_level_engine/internal/infrastructure/storage"
	"github.com/vitos/signal_level_engine/internal/usecase"
	"github.com/vitos/signal_level_engine/internal/web"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.Level, cfg.Logging.File)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Audit Storage
	if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal("Failed to create data dir", zap.Error(err))
		}
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath, log)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	sink := domain.NewMultiSink(logger.NewZapSink(log), store)

	// 4. Init Order Gateway
	var gw domain.OrderGateway
	var sim *gateway.SimGateway
	switch cfg.Gateway.Mode {
	case "sim":
		sim = gateway.NewSimGateway(cfg.Gateway.SplitFill, log)
		gw = sim
	case "host":
		gw = gateway.NewHostGateway(cfg.Gateway.URL, log)
	}

	// 5. Init Trading Service
	instrument := domain.Instrument{
		Symbol:   cfg.Instrument.Symbol,
		Factor:   cfg.Instrument.Factor,
		TickSize: cfg.Instrument.TickSize,
	}
	params := usecase.Params{
		EntryThresholds:     cfg.Strategy.EntryThresholds,
		ExitMultipliers:     cfg.Strategy.ExitMultipliers,
		MaxConcurrentLevels: cfg.Strategy.MaxConcurrentLevels,
		LevelSize:           cfg.Strategy.LevelSize,
		ReconcileTolerance:  cfg.Reconcile.Tolerance,
	}
	svc, err := usecase.NewTradingService(instrument, params, gw, sink, log)
	if err != nil {
		log.Fatal("Failed to init trading service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6. Wire Host Feed
	hostFeed := feed.NewHostFeed(cfg.Feed.URL, cfg.Instrument.Symbol, log)
	hostFeed.OnBar(func(bar domain.Bar, signal float64) {
		if bar.Symbol != cfg.Instrument.Symbol {
			return
		}
		if err := svc.ProcessUpdate(ctx, bar, signal); err != nil {
			log.Error("Error processing update", zap.Error(err))
		}
		// In sim mode every completed bar also drives order execution.
		if sim != nil {
			sim.Tick(bar.Close, bar.Time)
		}
	})
	if sim != nil {
		sim.OnFill(svc.OnFill)
		sim.OnOrderStatus(svc.OnOrderStatus)
	} else {
		hostFeed.OnFill(svc.OnFill)
		hostFeed.OnOrderStatus(svc.OnOrderStatus)
	}

	go func() {
		if err := hostFeed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Feed stopped", zap.Error(err))
		}
	}()

	// 7. Start Reconciler
	svc.StartReconciler(ctx, time.Duration(cfg.Reconcile.IntervalMs)*time.Millisecond)

	// 8. Start Web Server
	server := web.NewServer(cfg.Server.Port, svc, store, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 9. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()
	server.Shutdown(context.Background())

	// Session cycles land next to the audit db for offline analysis. The
	// export merges into any previous file, so restarts are safe.
	if cycles := svc.Cycles(); len(cycles) > 0 {
		out := filepath.Join(cfg.Storage.ParquetDir, "cycles.parquet")
		recs := make([]*domain.CycleRecord, len(cycles))
		for i := range cycles {
			recs[i] = &cycles[i]
		}
		if err := storage.ExportCycles(out, recs); err != nil {
			log.Error("Failed to export cycles", zap.Error(err))
		} else {
			log.Info("Cycles exported", zap.String("path", out), zap.Int("count", len(recs)))
		}
	}

	if err := store.Close(); err != nil {
		log.Error("Failed to close audit store", zap.Error(err))
	}
}
