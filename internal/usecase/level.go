package usecase

import (
	"sort"
	"time"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// Level is one entry tranche and its partitioned scaled exits. A level is
// owned by exactly one LevelManager, whose lock covers every access, so the
// methods here are deliberately unsynchronized.
type Level struct {
	id               int64
	symbol           string
	entryThreshold   float64
	exitMultipliers  []float64
	instrumentFactor float64

	entered         bool
	side            domain.Side
	entrySignal     float64
	entryPrice      float64
	entryTime       time.Time
	positionSize    int64
	currentPosition int64

	// exitQuantities[i] is the outstanding quantity of exit tranche i.
	// Invariant once entered: sum over i == |currentPosition|.
	exitQuantities map[int]int64

	orders map[string]domain.LevelOrder
}

func NewLevel(id int64, symbol string, entryThreshold float64, exitMultipliers []float64, instrumentFactor float64) *Level {
	return &Level{
		id:               id,
		symbol:           symbol,
		entryThreshold:   entryThreshold,
		exitMultipliers:  append([]float64(nil), exitMultipliers...),
		instrumentFactor: instrumentFactor,
		exitQuantities:   make(map[int]int64),
		orders:           make(map[string]domain.LevelOrder),
	}
}

func (l *Level) ID() int64               { return l.id }
func (l *Level) Side() domain.Side       { return l.side }
func (l *Level) EntryThreshold() float64 { return l.entryThreshold }
func (l *Level) EntrySignal() float64    { return l.entrySignal }
func (l *Level) EntryPrice() float64     { return l.entryPrice }
func (l *Level) EntryTime() time.Time    { return l.entryTime }
func (l *Level) PositionSize() int64     { return l.positionSize }
func (l *Level) CurrentPosition() int64  { return l.currentPosition }

// ExecuteEntry opens the level and partitions size across the exit tranches:
// size/n to each, with the remainder spread one lot at a time over the
// earliest indices. 10 across 3 tranches partitions as 4,3,3.
// Returns false if the level is already entered or size is not positive.
func (l *Level) ExecuteEntry(t time.Time, side domain.Side, size int64, price, signal float64) bool {
	if l.entered || size <= 0 || len(l.exitMultipliers) == 0 {
		return false
	}

	l.entered = true
	l.side = side
	l.entrySignal = signal
	l.entryPrice = price
	l.entryTime = t
	l.positionSize = size
	if side == domain.SideSell {
		l.currentPosition = -size
	} else {
		l.currentPosition = size
	}

	n := int64(len(l.exitMultipliers))
	base := size / n
	rem := size % n
	for i := int64(0); i < n; i++ {
		q := base
		if i < rem {
			q++
		}
		l.exitQuantities[int(i)] = q
	}
	return true
}

// GetTriggeredExitLevels returns the indices of exit tranches, ascending,
// whose mean-reversion threshold the signal has crossed and which still
// have outstanding quantity. A tranche's exit threshold is the entry
// threshold scaled by its multiplier: a buy entered on a deeply negative
// signal exits tranche i once the signal recovers to -threshold*mult[i],
// a sell symmetrically once it falls back to +threshold*mult[i].
func (l *Level) GetTriggeredExitLevels(signal float64) []int {
	if !l.entered {
		return nil
	}
	var triggered []int
	for i := range l.exitMultipliers {
		if l.exitQuantities[i] == 0 {
			continue
		}
		exitThreshold := l.entryThreshold * l.exitMultipliers[i]
		if l.side == domain.SideBuy {
			if signal >= -exitThreshold {
				triggered = append(triggered, i)
			}
		} else {
			if signal <= exitThreshold {
				triggered = append(triggered, i)
			}
		}
	}
	return triggered
}

// ExecuteExit zeroes tranche index and walks currentPosition toward zero by
// the tranche quantity. Returns the executed quantity, 0 when the tranche
// does not exist or was already exited.
func (l *Level) ExecuteExit(index int) int64 {
	qty, ok := l.exitQuantities[index]
	if !ok || qty == 0 {
		return 0
	}
	l.exitQuantities[index] = 0

	open := absInt64(l.currentPosition)
	if qty > open {
		qty = open
	}
	if l.currentPosition > 0 {
		l.currentPosition -= qty
	} else {
		l.currentPosition += qty
	}
	return qty
}

// IsComplete reports whether the level has been entered and fully exited.
func (l *Level) IsComplete() bool {
	return l.entered && l.currentPosition == 0
}

// RemainingExitQuantity is the sum of outstanding exit tranches.
func (l *Level) RemainingExitQuantity() int64 {
	var sum int64
	for _, q := range l.exitQuantities {
		sum += q
	}
	return sum
}

// CalculateUnrealizedPnL marks the open part of the level against price,
// from the level's own entry price.
func (l *Level) CalculateUnrealizedPnL(price float64) float64 {
	open := absInt64(l.currentPosition)
	if !l.entered || open == 0 {
		return 0
	}
	delta := price - l.entryPrice
	if l.side == domain.SideSell {
		delta = -delta
	}
	return float64(open) * delta * l.instrumentFactor
}

// AddOrder records an order routed on behalf of this level.
func (l *Level) AddOrder(o domain.LevelOrder) {
	l.orders[o.ID] = o
}

// UpdateOrderStatus advances a tracked order. Unknown ids are ignored so
// late or duplicate gateway callbacks stay harmless.
func (l *Level) UpdateOrderStatus(orderID string, status domain.OrderStatus) bool {
	o, ok := l.orders[orderID]
	if !ok {
		return false
	}
	o.Status = status
	l.orders[orderID] = o
	return true
}

// HasPendingOrders reports whether any tracked order is still working.
func (l *Level) HasPendingOrders() bool {
	for _, o := range l.orders {
		if o.Status.IsPending() {
			return true
		}
	}
	return false
}

// CleanupCompletedOrders drops orders that can no longer produce fills and
// returns how many were removed.
func (l *Level) CleanupCompletedOrders() int {
	removed := 0
	for id, o := range l.orders {
		if o.Status.IsTerminal() {
			delete(l.orders, id)
			removed++
		}
	}
	return removed
}

// Snapshot copies the level for the web layer. price marks unrealized PnL.
func (l *Level) Snapshot(price float64) domain.LevelSnapshot {
	exits := make(map[int]int64, len(l.exitQuantities))
	for i, q := range l.exitQuantities {
		exits[i] = q
	}
	orders := make([]domain.LevelOrder, 0, len(l.orders))
	for _, o := range l.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })

	return domain.LevelSnapshot{
		ID:              l.id,
		Symbol:          l.symbol,
		Side:            l.side,
		EntryThreshold:  l.entryThreshold,
		EntrySignal:     l.entrySignal,
		EntryPrice:      l.entryPrice,
		EntryTime:       l.entryTime,
		PositionSize:    l.positionSize,
		CurrentPosition: l.currentPosition,
		ExitQuantities:  exits,
		Orders:          orders,
		UnrealizedPnL:   l.CalculateUnrealizedPnL(price),
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
