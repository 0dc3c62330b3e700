package usecase

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// levelKey identifies the entry slot a level occupies while active. One
// live level per (threshold, side) pair.
type levelKey struct {
	threshold float64
	side      domain.Side
}

// LevelManager owns every Level and the order-to-level routing table. All
// level state lives behind one RWMutex; sink notifications happen after the
// lock is released so slow observers never stall the hot path.
type LevelManager struct {
	mu sync.RWMutex

	symbol          string
	entryThresholds []float64
	exitMultipliers []float64
	maxConcurrent   int
	factor          float64
	sink            domain.EventSink

	nextID    int64
	active    map[int64]*Level
	activeKey map[levelKey]*Level
	completed []*Level

	// orderIndex maps a gateway order id to its owning level, active or
	// completed, until the order reaches a terminal status.
	orderIndex map[string]*Level
}

func NewLevelManager(symbol string, entryThresholds, exitMultipliers []float64, maxConcurrent int, factor float64, sink domain.EventSink) (*LevelManager, error) {
	if symbol == "" {
		return nil, fmt.Errorf("level manager: symbol is required")
	}
	if len(entryThresholds) == 0 {
		return nil, fmt.Errorf("level manager: at least one entry threshold is required")
	}
	if len(exitMultipliers) == 0 {
		return nil, fmt.Errorf("level manager: at least one exit multiplier is required")
	}
	if maxConcurrent <= 0 {
		return nil, fmt.Errorf("level manager: maxConcurrent must be positive, got %d", maxConcurrent)
	}
	if factor <= 0 {
		return nil, fmt.Errorf("level manager: instrument factor must be positive, got %f", factor)
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &LevelManager{
		symbol:          symbol,
		entryThresholds: append([]float64(nil), entryThresholds...),
		exitMultipliers: append([]float64(nil), exitMultipliers...),
		maxConcurrent:   maxConcurrent,
		factor:          factor,
		sink:            sink,
		nextID:          1,
		active:          make(map[int64]*Level),
		activeKey:       make(map[levelKey]*Level),
		orderIndex:      make(map[string]*Level),
	}, nil
}

// GetTriggeredEntryLevels returns the configured thresholds the signal has
// crossed for side and which have no live level yet. A buy entry wants a
// deeply negative signal (signal <= -threshold), a sell the mirror image.
func (m *LevelManager) GetTriggeredEntryLevels(signal float64, side domain.Side) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []float64
	for _, th := range m.entryThresholds {
		crossed := false
		if side == domain.SideBuy {
			crossed = signal <= -th
		} else {
			crossed = signal >= th
		}
		if !crossed {
			continue
		}
		if _, live := m.activeKey[levelKey{threshold: th, side: side}]; live {
			continue
		}
		out = append(out, th)
	}
	return out
}

// CreateLevel opens a level on the given entry slot. It refuses quietly,
// returning the existing level and false, when the slot is already live; it
// returns nil and false when the concurrency bound is reached or the entry
// is otherwise rejected. Creation is never an error: a refused entry is a
// business outcome, not a fault.
func (m *LevelManager) CreateLevel(t time.Time, side domain.Side, threshold float64, size int64, price, signal float64) (*Level, bool) {
	key := levelKey{threshold: threshold, side: side}

	m.mu.Lock()
	if existing, live := m.activeKey[key]; live {
		m.mu.Unlock()
		return existing, false
	}
	if len(m.active) >= m.maxConcurrent {
		m.mu.Unlock()
		return nil, false
	}

	lv := NewLevel(m.nextID, m.symbol, threshold, m.exitMultipliers, m.factor)
	if !lv.ExecuteEntry(t, side, size, price, signal) {
		m.mu.Unlock()
		return nil, false
	}
	m.nextID++
	m.active[lv.ID()] = lv
	m.activeKey[key] = lv
	m.mu.Unlock()

	m.sink.LevelCreated(domain.LevelCreatedEvent{
		Time:      t,
		LevelID:   lv.ID(),
		Symbol:    m.symbol,
		Side:      side,
		Threshold: threshold,
		Signal:    signal,
		Price:     price,
		Size:      size,
	})
	return lv, true
}

// GetAllTriggeredExitLevels maps each active level id to the exit tranche
// indices its current signal position has released.
func (m *LevelManager) GetAllTriggeredExitLevels(signal float64) map[int64][]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int64][]int)
	for id, lv := range m.active {
		if idxs := lv.GetTriggeredExitLevels(signal); len(idxs) > 0 {
			out[id] = idxs
		}
	}
	return out
}

// ExecuteExit runs tranche index of the given level and, when the level
// reaches flat, moves it to the completed set in the same critical section.
// Returns the executed quantity; 0 for unknown levels or spent tranches.
func (m *LevelManager) ExecuteExit(levelID int64, index int, price float64, t time.Time) int64 {
	m.mu.Lock()
	lv, ok := m.active[levelID]
	if !ok {
		m.mu.Unlock()
		return 0
	}
	qty := lv.ExecuteExit(index)
	remaining := lv.CurrentPosition()
	completed := false
	if qty > 0 && lv.IsComplete() {
		delete(m.active, levelID)
		delete(m.activeKey, levelKey{threshold: lv.EntryThreshold(), side: lv.Side()})
		m.completed = append(m.completed, lv)
		completed = true
	}
	m.mu.Unlock()

	if qty > 0 {
		m.sink.ExitExecuted(domain.ExitExecutedEvent{
			Time:      t,
			LevelID:   levelID,
			ExitIndex: index,
			Quantity:  qty,
			Price:     price,
			Remaining: remaining,
		})
	}
	if completed {
		m.sink.LevelCompleted(domain.LevelCompletedEvent{Time: t, LevelID: levelID})
	}
	return qty
}

// LevelSide reports the side of an active level.
func (m *LevelManager) LevelSide(levelID int64) (domain.Side, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lv, ok := m.active[levelID]
	if !ok {
		return "", false
	}
	return lv.Side(), true
}

// AddOrderToLevel attaches a routed order to an active level and indexes it
// for fill attribution. An order id belongs to at most one level.
func (m *LevelManager) AddOrderToLevel(levelID int64, o domain.LevelOrder) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	lv, ok := m.active[levelID]
	if !ok {
		return false
	}
	if _, taken := m.orderIndex[o.ID]; taken {
		return false
	}
	lv.AddOrder(o)
	m.orderIndex[o.ID] = lv
	return true
}

// FindLevelForOrder resolves a gateway order id to its owning level id.
func (m *LevelManager) FindLevelForOrder(orderID string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lv, ok := m.orderIndex[orderID]
	if !ok {
		return 0, false
	}
	return lv.ID(), true
}

// UpdateOrderStatus routes a status callback to the owning level. Terminal
// statuses release the order id from the routing table. Unknown ids are a
// no-op: the host may replay callbacks or deliver them late.
func (m *LevelManager) UpdateOrderStatus(orderID string, status domain.OrderStatus) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lv, ok := m.orderIndex[orderID]
	if !ok {
		return 0, false
	}
	lv.UpdateOrderStatus(orderID, status)
	if status.IsTerminal() {
		delete(m.orderIndex, orderID)
	}
	return lv.ID(), true
}

// CleanupCompletedOrders sweeps terminal orders out of every active level.
func (m *LevelManager) CleanupCompletedOrders() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, lv := range m.active {
		removed += lv.CleanupCompletedOrders()
	}
	return removed
}

// ForceCloseAllLevels drains the active set into completed without emitting
// exit orders. Levels keep whatever position they carried; the caller
// decides what to do with the book. Returns the drained level ids.
func (m *LevelManager) ForceCloseAllLevels(t time.Time) []int64 {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.active))
	for id, lv := range m.active {
		ids = append(ids, id)
		m.completed = append(m.completed, lv)
	}
	m.active = make(map[int64]*Level)
	m.activeKey = make(map[levelKey]*Level)
	m.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		m.sink.LevelCompleted(domain.LevelCompletedEvent{Time: t, LevelID: id, Forced: true})
	}
	return ids
}

func (m *LevelManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

func (m *LevelManager) CompletedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.completed)
}

// ActiveSnapshots returns active levels ordered by id, marked at price.
func (m *LevelManager) ActiveSnapshots(price float64) []domain.LevelSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.LevelSnapshot, 0, len(m.active))
	for _, lv := range m.active {
		out = append(out, lv.Snapshot(price))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CompletedSnapshots returns completed levels in completion order.
func (m *LevelManager) CompletedSnapshots(price float64) []domain.LevelSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.LevelSnapshot, 0, len(m.completed))
	for _, lv := range m.completed {
		out = append(out, lv.Snapshot(price))
	}
	return out
}
