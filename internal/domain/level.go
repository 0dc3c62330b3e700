package domain

import "time"

// LevelOrder is the per-level record of an order routed through the gateway.
type LevelOrder struct {
	ID        string      `json:"id"`
	Type      OrderType   `json:"type"`
	Side      Side        `json:"side"`
	Quantity  int64       `json:"quantity"`
	Price     float64     `json:"price"`
	ExitIndex int         `json:"exit_index"` // -1 for entries
	Status    OrderStatus `json:"status"`
}

// LevelSnapshot is a read-only copy of a level's state for the web layer
// and for audit events.
type LevelSnapshot struct {
	ID              int64         `json:"id"`
	Symbol          string        `json:"symbol"`
	Side            Side          `json:"side"`
	EntryThreshold  float64       `json:"entry_threshold"`
	EntrySignal     float64       `json:"entry_signal"`
	EntryPrice      float64       `json:"entry_price"`
	EntryTime       time.Time     `json:"entry_time"`
	PositionSize    int64         `json:"position_size"`
	CurrentPosition int64         `json:"current_position"`
	ExitQuantities  map[int]int64 `json:"exit_quantities"`
	Orders          []LevelOrder  `json:"orders"`
	UnrealizedPnL   float64       `json:"unrealized_pnl"`
}
