package usecase

import (
	"time"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// TradeMetrics accumulates the life of one trade cycle: from the first fill
// that opens the aggregate position until the fill that returns it to flat.
// Excursions are measured against the first entry price, not the average
// price, so they describe how far the market ran against or for the initial
// decision.
type TradeMetrics struct {
	Side         domain.Side
	FirstFill    time.Time
	LastFill     time.Time
	EntryPrice   float64
	AveragePrice float64
	MaxPosition  int64

	// MaxFavorable >= 0 and MaxAdverse <= 0, both in price points from
	// EntryPrice, signed so that favorable is always positive for either side.
	MaxFavorable float64
	MaxAdverse   float64
}

// NewTradeMetrics opens a cycle from its first fill.
func NewTradeMetrics(side domain.Side, quantity int64, price float64, t time.Time) *TradeMetrics {
	return &TradeMetrics{
		Side:         side,
		FirstFill:    t,
		LastFill:     t,
		EntryPrice:   price,
		AveragePrice: price,
		MaxPosition:  quantity,
	}
}

// RecordAdd notes a position-increasing fill. LastFill tracks the most
// recent add, so time-since-last-fill at close measures how long the final
// size was carried.
func (m *TradeMetrics) RecordAdd(newAveragePrice float64, newAbsPosition int64, t time.Time) {
	m.LastFill = t
	m.AveragePrice = newAveragePrice
	if newAbsPosition > m.MaxPosition {
		m.MaxPosition = newAbsPosition
	}
}

// ObservePrice folds one traded or marked price into the excursion extremes.
func (m *TradeMetrics) ObservePrice(price float64) {
	delta := price - m.EntryPrice
	if m.Side == domain.SideSell {
		delta = -delta
	}
	if delta > m.MaxFavorable {
		m.MaxFavorable = delta
	}
	if delta < m.MaxAdverse {
		m.MaxAdverse = delta
	}
}

// Finalize closes the cycle at exitPrice and returns its audit record.
// The record's pnl is the from-entry analytic (averagePriceDelta scaled by
// peak size and the instrument factor), which intentionally differs from
// the exact realized accounting kept by the position book.
func (m *TradeMetrics) Finalize(symbol string, exitPrice float64, t time.Time, factor float64) domain.CycleRecord {
	m.ObservePrice(exitPrice)

	delta := exitPrice - m.EntryPrice
	if m.Side == domain.SideSell {
		delta = -delta
	}

	return domain.CycleRecord{
		Symbol:                symbol,
		Side:                  m.Side,
		FirstFill:             m.FirstFill,
		LastFill:              m.LastFill,
		EntryPrice:            m.EntryPrice,
		AveragePrice:          m.AveragePrice,
		ExitPrice:             exitPrice,
		AveragePriceDelta:     delta,
		CycleTimeMin:          t.Sub(m.FirstFill).Minutes(),
		TimeSinceLastFillMin:  t.Sub(m.LastFill).Minutes(),
		MaxAdverseExcursion:   m.MaxAdverse,
		MaxFavorableExcursion: m.MaxFavorable,
		MaxPosition:           m.MaxPosition,
		PnL:                   delta * float64(m.MaxPosition) * factor,
	}
}
