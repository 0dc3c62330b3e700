package storage

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// CycleRow is the Parquet schema for completed trade cycles.
type CycleRow struct {
	CycleID               int64   `parquet:"cycle_id"`
	Symbol                string  `parquet:"symbol"`
	Side                  string  `parquet:"side"`
	FirstFill             int64   `parquet:"first_fill,timestamp(millisecond)"`
	LastFill              int64   `parquet:"last_fill,timestamp(millisecond)"`
	EntryPrice            float64 `parquet:"entry_price"`
	AveragePrice          float64 `parquet:"average_price"`
	ExitPrice             float64 `parquet:"exit_price"`
	AveragePriceDelta     float64 `parquet:"average_price_delta"`
	CycleTimeMin          float64 `parquet:"cycle_time_min"`
	TimeSinceLastFillMin  float64 `parquet:"time_since_last_fill_min"`
	MaxAdverseExcursion   float64 `parquet:"max_adverse_excursion"`
	MaxFavorableExcursion float64 `parquet:"max_favorable_excursion"`
	MaxPosition           int64   `parquet:"max_position"`
	PnL                   float64 `parquet:"pnl"`
}

// ExportCycles writes cycles to a Parquet file at path, merging with any
// records already there. Re-exporting the same run is safe: rows are
// deduplicated by (symbol, side, first_fill, last_fill).
func ExportCycles(path string, cycles []*domain.CycleRecord) error {
	incoming := make([]CycleRow, 0, len(cycles))
	for _, c := range cycles {
		incoming = append(incoming, CycleRow{
			CycleID:               c.ID,
			Symbol:                c.Symbol,
			Side:                  string(c.Side),
			FirstFill:             c.FirstFill.UnixMilli(),
			LastFill:              c.LastFill.UnixMilli(),
			EntryPrice:            c.EntryPrice,
			AveragePrice:          c.AveragePrice,
			ExitPrice:             c.ExitPrice,
			AveragePriceDelta:     c.AveragePriceDelta,
			CycleTimeMin:          c.CycleTimeMin,
			TimeSinceLastFillMin:  c.TimeSinceLastFillMin,
			MaxAdverseExcursion:   c.MaxAdverseExcursion,
			MaxFavorableExcursion: c.MaxFavorableExcursion,
			MaxPosition:           c.MaxPosition,
			PnL:                   c.PnL,
		})
	}

	existing, _ := readParquetFile[CycleRow](path)
	merged := mergeCycleRows(existing, incoming)
	return writeParquetFile(path, merged)
}

// ReadCycles reads a cycle Parquet file back into domain records.
func ReadCycles(path string) ([]*domain.CycleRecord, error) {
	rows, err := readParquetFile[CycleRow](path)
	if err != nil {
		return nil, err
	}

	cycles := make([]*domain.CycleRecord, 0, len(rows))
	for _, r := range rows {
		cycles = append(cycles, &domain.CycleRecord{
			ID:                    r.CycleID,
			Symbol:                r.Symbol,
			Side:                  domain.Side(r.Side),
			FirstFill:             time.UnixMilli(r.FirstFill).UTC(),
			LastFill:              time.UnixMilli(r.LastFill).UTC(),
			EntryPrice:            r.EntryPrice,
			AveragePrice:          r.AveragePrice,
			ExitPrice:             r.ExitPrice,
			AveragePriceDelta:     r.AveragePriceDelta,
			CycleTimeMin:          r.CycleTimeMin,
			TimeSinceLastFillMin:  r.TimeSinceLastFillMin,
			MaxAdverseExcursion:   r.MaxAdverseExcursion,
			MaxFavorableExcursion: r.MaxFavorableExcursion,
			MaxPosition:           r.MaxPosition,
			PnL:                   r.PnL,
		})
	}
	return cycles, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeCycleRows deduplicates rows by (symbol, side, first_fill, last_fill),
// preferring new rows over existing ones. Results are sorted by first fill,
// then cycle id.
func mergeCycleRows(existing, incoming []CycleRow) []CycleRow {
	type key struct {
		symbol    string
		side      string
		firstFill int64
		lastFill  int64
	}
	seen := make(map[key]CycleRow, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Side, r.FirstFill, r.LastFill}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Side, r.FirstFill, r.LastFill}] = r
	}

	merged := make([]CycleRow, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].FirstFill != merged[j].FirstFill {
			return merged[i].FirstFill < merged[j].FirstFill
		}
		return merged[i].CycleID < merged[j].CycleID
	})
	return merged
}
