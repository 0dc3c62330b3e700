package domain

import "time"

// PositionSnapshot is a read-only copy of one position book.
type PositionSnapshot struct {
	Name          string  `json:"name"`
	Position      int64   `json:"position"`
	AveragePrice  float64 `json:"average_price"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	CycleCount    int     `json:"cycle_count"`
}

// CycleRecord is the audit record of one completed trade cycle, written
// when the aggregate position returns to flat.
type CycleRecord struct {
	ID                    int64     `json:"id"`
	Symbol                string    `json:"symbol"`
	Side                  Side      `json:"side"`
	FirstFill             time.Time `json:"first_fill"`
	LastFill              time.Time `json:"last_fill"`
	EntryPrice            float64   `json:"entry_price"`
	AveragePrice          float64   `json:"average_price"`
	ExitPrice             float64   `json:"exit_price"`
	AveragePriceDelta     float64   `json:"average_price_delta"`
	CycleTimeMin          float64   `json:"cycle_time_min"`
	TimeSinceLastFillMin  float64   `json:"time_since_last_fill_min"`
	MaxAdverseExcursion   float64   `json:"max_adverse_excursion"`
	MaxFavorableExcursion float64   `json:"max_favorable_excursion"`
	MaxPosition           int64     `json:"max_position"`
	PnL                   float64   `json:"pnl"`
}
