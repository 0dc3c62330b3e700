package domain

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Sign returns +1 for a buy and -1 for a sell.
func (s Side) Sign() int64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// Opposite returns the closing side for a position opened on s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderStatus mirrors the host's order lifecycle vocabulary.
type OrderStatus string

const (
	OrderStatusPendingNew      OrderStatus = "PendingNew"
	OrderStatusNew             OrderStatus = "New"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "Filled"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusRejected        OrderStatus = "Rejected"
	OrderStatusReplaced        OrderStatus = "Replaced"
)

// IsPending reports whether the order is still working at the gateway.
func (s OrderStatus) IsPending() bool {
	return s == OrderStatusPendingNew || s == OrderStatusNew || s == OrderStatusPartiallyFilled
}

// IsTerminal reports whether the order can no longer produce fills.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

// OrderType distinguishes entry tranches from scaled exits.
type OrderType string

const (
	OrderTypeEntry      OrderType = "ENTRY"
	OrderTypeExit       OrderType = "EXIT"
	OrderTypeCorrection OrderType = "CORRECTION"
)

// OrderRequest is the outbound order-creation request handed to the gateway.
// ExitIndex is -1 for entry orders.
type OrderRequest struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Quantity   int64     `json:"quantity"`
	LimitPrice float64   `json:"limit_price"` // 0 = market
	Type       OrderType `json:"type"`
	LevelID    int64     `json:"level_id"`
	ExitIndex  int       `json:"exit_index"`
}

// Fill is a single execution reported by the host.
type Fill struct {
	OrderID  string    `json:"order_id"`
	Side     Side      `json:"side"`
	Quantity int64     `json:"quantity"`
	Price    float64   `json:"price"`
	Time     time.Time `json:"time"`
}

// OrderStatusEvent is an order lifecycle callback from the host.
type OrderStatusEvent struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
}
