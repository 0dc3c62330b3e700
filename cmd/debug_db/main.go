package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/signal_level_engine/internal/infrastructure/logger"
	"github.com/vitos/signal_level_engine/internal/infrastructure/storage"
)

// Dumps the tail of the audit database for a quick look at a running or
// finished session.
func main() {
	dbPath := flag.String("db", "data/engine.db", "sqlite audit database")
	limit := flag.Int("limit", 20, "rows per table")
	flag.Parse()

	log, err := logger.NewLogger("warn")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(*dbPath, log)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	cycles, err := store.ListCycles(ctx, *limit)
	if err != nil {
		fmt.Printf("Failed to list cycles: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Last %d cycles:\n", len(cycles))
	for _, c := range cycles {
		fmt.Printf("- Cycle %d: %s %s, max_pos=%d, pnl=%.2f, %.1f min (%s -> %s)\n",
			c.ID, c.Symbol, c.Side, c.MaxPosition, c.PnL, c.CycleTimeMin,
			c.FirstFill.Format("15:04:05"), c.LastFill.Format("15:04:05"))
	}

	events, err := store.ListEvents(ctx, *limit)
	if err != nil {
		fmt.Printf("Failed to list events: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nLast %d events:\n", len(events))
	for _, e := range events {
		fmt.Printf("- [%s] %s level=%d order=%s %s\n",
			e.Time.Format("15:04:05"), e.Kind, e.LevelID, e.OrderID, e.Detail)
	}
}
