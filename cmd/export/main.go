package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/signal_level_engine/internal/infrastructure/logger"
	"github.com/vitos/signal_level_engine/internal/infrastructure/storage"
)

// Exports completed cycles from the audit database to a parquet file for
// offline analysis.
func main() {
	dbPath := flag.String("db", "data/engine.db", "sqlite audit database")
	outPath := flag.String("out", "data/parquet/cycles.parquet", "output parquet file")
	limit := flag.Int("limit", 100000, "maximum cycles to export")
	flag.Parse()

	log, err := logger.NewLogger("warn")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Printf("❌ Audit database not found: %s\n", *dbPath)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(*dbPath, log)
	if err != nil {
		fmt.Printf("❌ Failed to open audit database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	cycles, err := store.ListCycles(context.Background(), *limit)
	if err != nil {
		fmt.Printf("❌ Failed to list cycles: %v\n", err)
		os.Exit(1)
	}
	if len(cycles) == 0 {
		fmt.Println("No cycles to export.")
		return
	}

	if err := storage.ExportCycles(*outPath, cycles); err != nil {
		fmt.Printf("❌ Parquet export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Exported %d cycles to %s\n", len(cycles), *outPath)
}
