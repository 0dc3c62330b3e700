package domain

import "time"

// EngineStatus is the aggregate view served by the status endpoint.
type EngineStatus struct {
	Symbol          string           `json:"symbol"`
	Time            time.Time        `json:"time"`
	LastPrice       float64          `json:"last_price"`
	LastSignal      float64          `json:"last_signal"`
	ActiveLevels    int              `json:"active_levels"`
	CompletedLevels int              `json:"completed_levels"`
	LiveOrders      int              `json:"live_orders"`
	Theoretical     PositionSnapshot `json:"theoretical"`
	Actual          PositionSnapshot `json:"actual"`
	Drift           int64            `json:"drift"`
}

// WorkingOrder is a gateway order the engine still considers live.
type WorkingOrder struct {
	OrderID   string       `json:"order_id"`
	Request   OrderRequest `json:"request"`
	Status    OrderStatus  `json:"status"`
	Submitted time.Time    `json:"submitted"`
}

// AuditEvent is one row of the persistent engine event journal.
type AuditEvent struct {
	ID      int64     `json:"id"`
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	LevelID int64     `json:"level_id"`
	OrderID string    `json:"order_id"`
	Detail  string    `json:"detail"`
}
