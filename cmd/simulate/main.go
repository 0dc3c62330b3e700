package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/vitos/signal_level_engine/internal/config"
	"github.com/vitos/signal_level_engine/internal/domain"
	"github.com/vitos/signal_level_engine/internal/infrastructure/gateway"
	"github.com/vitos/signal_level_engine/internal/infrastructure/logger"
	"github.com/vitos/signal_level_engine/internal/infrastructure/storage"
	"github.com/vitos/signal_level_engine/internal/usecase"
)

// summarySink counts engine events for the end-of-run report.
type summarySink struct {
	created     int
	exits       int
	completed   int
	orders      int
	corrections int
}

func (s *summarySink) LevelCreated(domain.LevelCreatedEvent)     { s.created++ }
func (s *summarySink) ExitExecuted(domain.ExitExecutedEvent)     { s.exits++ }
func (s *summarySink) LevelCompleted(domain.LevelCompletedEvent) { s.completed++ }
func (s *summarySink) CycleCompleted(domain.CycleRecord)         {}
func (s *summarySink) OrderSubmitted(domain.OrderSubmittedEvent) { s.orders++ }
func (s *summarySink) CorrectionIssued(domain.CorrectionEvent)   { s.corrections++ }
func (s *summarySink) Close() error                              { return nil }

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	bars := flag.Int("bars", 2000, "number of one-minute bars to simulate")
	seed := flag.Int64("seed", 1, "random seed")
	startPrice := flag.Float64("start", 5000.0, "starting price")
	dbPath := flag.String("db", "", "optional sqlite audit path for the run")
	outPath := flag.String("out", "", "optional parquet path for completed cycles")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger("warn")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 2. Build Sinks
	summary := &summarySink{}
	sinks := []domain.EventSink{summary}
	var store *storage.SQLiteStore
	if *dbPath != "" {
		store, err = storage.NewSQLiteStore(*dbPath, log)
		if err != nil {
			fmt.Printf("Failed to init sqlite: %v\n", err)
			os.Exit(1)
		}
		sinks = append(sinks, store)
	}
	sink := domain.NewMultiSink(sinks...)

	// 3. Build Engine on the Sim Gateway
	gw := gateway.NewSimGateway(cfg.Gateway.SplitFill, log)
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
		fmt.Printf("Failed to init trading service: %v\n", err)
		os.Exit(1)
	}
	gw.OnFill(svc.OnFill)
	gw.OnOrderStatus(svc.OnOrderStatus)

	// 4. Run the Session
	// Price is a random walk; the signal measures the stretch between price
	// and its EMA, so signal extremes line up with reverting prices.
	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()
	price := *startPrice
	ema := price
	const emaAlpha = 0.05
	const signalScale = 0.25

	start := time.Now().UTC().Truncate(time.Minute)
	fmt.Printf("Simulating %d bars of %s (seed=%d)...\n", *bars, instrument.Symbol, *seed)

	for i := 0; i < *bars; i++ {
		t := start.Add(time.Duration(i) * time.Minute)
		move := rng.NormFloat64() * instrument.TickSize * 4
		price += move
		ema += emaAlpha * (price - ema)
		signal := (price - ema) / (signalScale * instrument.TickSize * 4)

		bar := domain.Bar{
			Symbol: instrument.Symbol,
			Time:   t,
			Open:   price - move,
			High:   max(price, price-move),
			Low:    min(price, price-move),
			Close:  price,
			Volume: 1000 + rng.Float64()*500,
		}

		if err := svc.ProcessUpdate(ctx, bar, signal); err != nil {
			fmt.Printf("⚠️ Bar %d: %v\n", i, err)
		}
		gw.Tick(price, t)
	}

	// 5. Wind Down
	if err := svc.ForceCloseAll(ctx); err != nil {
		fmt.Printf("⚠️ Force close: %v\n", err)
	}
	drift, _, err := svc.Reconcile(ctx)
	if err != nil {
		fmt.Printf("⚠️ Reconcile: %v\n", err)
	}

	// 6. Report
	status := svc.Status()
	cycles := svc.Cycles()

	var totalPnL float64
	wins := 0
	for _, c := range cycles {
		totalPnL += c.PnL
		if c.PnL > 0 {
			wins++
		}
	}

	fmt.Println("\n--- Simulated Session ---")
	fmt.Printf("Bars: %d   Final price: %.2f\n", *bars, price)
	fmt.Printf("Levels: created=%d exits=%d completed=%d\n", summary.created, summary.exits, summary.completed)
	fmt.Printf("Orders submitted: %d   Corrections: %d\n", summary.orders, summary.corrections)
	fmt.Printf("Theoretical: pos=%d realized=%.2f\n", status.Theoretical.Position, status.Theoretical.RealizedPnL)
	fmt.Printf("Actual:      pos=%d realized=%.2f\n", status.Actual.Position, status.Actual.RealizedPnL)
	if drift == 0 {
		fmt.Println("Drift: 0 ✅")
	} else {
		fmt.Printf("Drift: %d ❌\n", drift)
	}
	if len(cycles) > 0 {
		fmt.Printf("Cycles: %d  total PnL=%.2f  win rate=%.1f%%\n",
			len(cycles), totalPnL, 100*float64(wins)/float64(len(cycles)))
	} else {
		fmt.Println("Cycles: 0")
	}

	// 7. Export
	if *outPath != "" {
		recs := make([]*domain.CycleRecord, len(cycles))
		for i := range cycles {
			recs[i] = &cycles[i]
		}
		if err := storage.ExportCycles(*outPath, recs); err != nil {
			fmt.Printf("❌ Parquet export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Cycles exported to %s\n", *outPath)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			fmt.Printf("❌ Audit store close failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Audit trail written to %s\n", *dbPath)
	}
}
