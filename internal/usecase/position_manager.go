package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// PositionManager keeps one aggregate signed position book across all
// levels. Two instances normally run side by side: a theoretical book fed
// by the engine's own decisions and an actual book fed by host fills, with
// the reconciler watching the difference.
//
// Realized PnL here is exact accounting against the volume-weighted average
// price. The per-cycle records it emits carry the from-entry analytic
// instead; the two agree only for single-fill cycles.
type PositionManager struct {
	mu sync.RWMutex

	name   string
	symbol string
	factor float64
	sink   domain.EventSink

	position     int64
	averagePrice float64
	realized     float64
	unrealized   float64

	current     *TradeMetrics
	cycles      []domain.CycleRecord
	nextCycleID int64
}

func NewPositionManager(name, symbol string, factor float64, sink domain.EventSink) (*PositionManager, error) {
	if name == "" {
		return nil, fmt.Errorf("position manager: name is required")
	}
	if symbol == "" {
		return nil, fmt.Errorf("position manager: symbol is required")
	}
	if factor <= 0 {
		return nil, fmt.Errorf("position manager: instrument factor must be positive, got %f", factor)
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &PositionManager{
		name:        name,
		symbol:      symbol,
		factor:      factor,
		sink:        sink,
		nextCycleID: 1,
	}, nil
}

func (m *PositionManager) Name() string { return m.name }

// OnFill applies one execution to the book. The position always moves by
// exactly the signed fill quantity; what varies is the bookkeeping around
// it: open, add at a blended average, reduce with realized PnL, close out
// the cycle, or close and reverse in one step. Non-positive quantities are
// ignored and contribute exactly zero PnL.
func (m *PositionManager) OnFill(side domain.Side, quantity int64, price float64, t time.Time) {
	if quantity <= 0 {
		return
	}
	signed := quantity * side.Sign()

	m.mu.Lock()
	var finished []domain.CycleRecord
	switch {
	case m.position == 0:
		m.openLocked(side, quantity, price, t)

	case (signed > 0) == (m.position > 0):
		// Same direction: blend the average price by volume.
		oldAbs := absInt64(m.position)
		newAbs := oldAbs + quantity
		m.averagePrice = (m.averagePrice*float64(oldAbs) + price*float64(quantity)) / float64(newAbs)
		m.position += signed
		m.current.RecordAdd(m.averagePrice, newAbs, t)

	case quantity <= absInt64(m.position):
		// Reduction, possibly to flat.
		m.realized += m.realizeLocked(quantity, price)
		m.position += signed
		if m.position == 0 {
			finished = append(finished, m.finishCycleLocked(price, t))
		}

	default:
		// Reversal: the fill is larger than the open position and on the
		// other side. Close the whole book at this price, then reopen the
		// residual in the fill's direction.
		residual := m.position + signed
		m.realized += m.realizeLocked(absInt64(m.position), price)
		m.position = 0
		finished = append(finished, m.finishCycleLocked(price, t))
		m.openLocked(side, absInt64(residual), price, t)
	}
	m.markLocked(price)
	m.mu.Unlock()

	for _, rec := range finished {
		m.sink.CycleCompleted(rec)
	}
}

// UpdateTradeMetric marks unrealized PnL from the bar close against the
// aggregate average price and feeds the close into the cycle's excursions.
func (m *PositionManager) UpdateTradeMetric(bar domain.Bar) {
	m.mu.Lock()
	m.markLocked(bar.Close)
	m.mu.Unlock()
}

// Reset returns the book to flat and discards history. Safe to call
// between independent trading sessions; cycle ids keep counting up.
func (m *PositionManager) Reset() {
	m.mu.Lock()
	m.position = 0
	m.averagePrice = 0
	m.realized = 0
	m.unrealized = 0
	m.current = nil
	m.cycles = nil
	m.mu.Unlock()
}

func (m *PositionManager) Position() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.position
}

func (m *PositionManager) AveragePrice() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.averagePrice
}

func (m *PositionManager) RealizedPnL() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.realized
}

func (m *PositionManager) UnrealizedPnL() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unrealized
}

func (m *PositionManager) CycleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cycles)
}

// Cycles returns a copy of the completed cycle records, oldest first.
func (m *PositionManager) Cycles() []domain.CycleRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.CycleRecord(nil), m.cycles...)
}

// CurrentCycle returns a copy of the in-progress cycle metrics, if any.
func (m *PositionManager) CurrentCycle() (TradeMetrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return TradeMetrics{}, false
	}
	return *m.current, true
}

func (m *PositionManager) Snapshot() domain.PositionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.PositionSnapshot{
		Name:          m.name,
		Position:      m.position,
		AveragePrice:  m.averagePrice,
		RealizedPnL:   m.realized,
		UnrealizedPnL: m.unrealized,
		CycleCount:    len(m.cycles),
	}
}

func (m *PositionManager) openLocked(side domain.Side, quantity int64, price float64, t time.Time) {
	m.position = quantity * side.Sign()
	m.averagePrice = price
	m.current = NewTradeMetrics(side, quantity, price, t)
}

// realizeLocked prices a reduction of qty against the average. Sign
// convention: closing part of a long above average is a gain, closing part
// of a short above average is a loss.
func (m *PositionManager) realizeLocked(quantity int64, price float64) float64 {
	direction := 1.0
	if m.position < 0 {
		direction = -1.0
	}
	return direction * float64(quantity) * (price - m.averagePrice) * m.factor
}

func (m *PositionManager) finishCycleLocked(price float64, t time.Time) domain.CycleRecord {
	rec := m.current.Finalize(m.symbol, price, t, m.factor)
	rec.ID = m.nextCycleID
	m.nextCycleID++
	m.cycles = append(m.cycles, rec)
	m.current = nil
	m.averagePrice = 0
	return rec
}

func (m *PositionManager) markLocked(price float64) {
	if m.position == 0 {
		m.unrealized = 0
		return
	}
	direction := 1.0
	if m.position < 0 {
		direction = -1.0
	}
	m.unrealized = direction * float64(absInt64(m.position)) * (price - m.averagePrice) * m.factor
	if m.current != nil {
		m.current.ObservePrice(price)
	}
}
