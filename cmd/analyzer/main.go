package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/signal_level_engine/internal/domain"
	"github.com/vitos/signal_level_engine/internal/infrastructure/logger"
	"github.com/vitos/signal_level_engine/internal/infrastructure/storage"
	"github.com/vitos/signal_level_engine/internal/usecase"
)

// Summarizes completed cycles from a parquet export or straight from the
// audit database.
func main() {
	inPath := flag.String("in", "data/parquet/cycles.parquet", "cycle parquet file")
	dbPath := flag.String("db", "", "read from this sqlite audit database instead")
	top := flag.Int("top", 10, "number of cycles in the top table")
	flag.Parse()

	var cycles []*domain.CycleRecord
	var source string
	var err error

	if *dbPath != "" {
		source = *dbPath
		log, lerr := logger.NewLogger("warn")
		if lerr != nil {
			fmt.Printf("Failed to init logger: %v\n", lerr)
			os.Exit(1)
		}
		defer log.Sync()

		store, serr := storage.NewSQLiteStore(*dbPath, log)
		if serr != nil {
			fmt.Printf("Error opening audit database: %v\n", serr)
			os.Exit(1)
		}
		defer store.Close()
		cycles, err = store.ListCycles(context.Background(), 100000)
	} else {
		source = *inPath
		cycles, err = storage.ReadCycles(*inPath)
	}
	if err != nil {
		fmt.Printf("Error reading cycles: %v\n", err)
		os.Exit(1)
	}
	if len(cycles) == 0 {
		fmt.Println("No cycles found.")
		return
	}

	fmt.Printf("Analyzing %d cycles from %s\n\n", len(cycles), source)

	report := usecase.AnalyzeCycles(cycles)

	fmt.Printf("%-8s | %-6s | %-7s | %-12s | %-10s | %-9s | %-9s | %-8s\n",
		"Side", "Count", "Win %", "Total PnL", "Avg PnL", "Avg MAE", "Avg MFE", "Avg Min")
	fmt.Println("--------------------------------------------------------------------------------------")
	printStats("BUY", report.Buy)
	printStats("SELL", report.Sell)
	printStats("ALL", report.Overall)

	fmt.Printf("\nTop cycles by |PnL|:\n")
	fmt.Printf("%-6s | %-5s | %-22s | %-12s | %-8s | %-9s | %-9s\n",
		"Cycle", "Side", "First Fill", "PnL", "Max Pos", "MAE", "MFE")
	fmt.Println("--------------------------------------------------------------------------------------")
	for _, c := range usecase.TopCycles(cycles, *top) {
		fmt.Printf("%-6d | %-5s | %-22s | %-12.2f | %-8d | %-9.4f | %-9.4f\n",
			c.ID, c.Side, c.FirstFill.Format("2006-01-02 15:04"), c.PnL, c.MaxPosition,
			c.MaxAdverseExcursion, c.MaxFavorableExcursion)
	}
}

func printStats(label string, s usecase.CycleStats) {
	if s.Count == 0 {
		fmt.Printf("%-8s | %-6d |\n", label, 0)
		return
	}
	fmt.Printf("%-8s | %-6d | %-7.1f | %-12.2f | %-10.2f | %-9.4f | %-9.4f | %-8.1f\n",
		label, s.Count, s.WinRatePcnt, s.TotalPnL, s.AveragePnL,
		s.AverageAdverse, s.AverageFavorable, s.AverageCycleMin)
}
