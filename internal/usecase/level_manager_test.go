package usecase_test

import (
	"testing"

	"github.com/vitos/signal_level_engine/internal/domain"
	"github.com/vitos/signal_level_engine/internal/usecase"
)

func newTestManager(t *testing.T, sink domain.EventSink) *usecase.LevelManager {
	t.Helper()
	m, err := usecase.NewLevelManager("ES", []float64{1.5, 2.0, 2.5}, []float64{0.75, 0.5}, 2, 50.0, sink)
	if err != nil {
		t.Fatalf("NewLevelManager: %v", err)
	}
	return m
}

func TestLevelManager_Validation(t *testing.T) {
	cases := []struct {
		name       string
		symbol     string
		thresholds []float64
		mults      []float64
		maxLevels  int
		factor     float64
	}{
		{"empty symbol", "", []float64{2.0}, []float64{0.5}, 1, 50.0},
		{"no thresholds", "ES", nil, []float64{0.5}, 1, 50.0},
		{"no multipliers", "ES", []float64{2.0}, nil, 1, 50.0},
		{"zero capacity", "ES", []float64{2.0}, []float64{0.5}, 0, 50.0},
		{"zero factor", "ES", []float64{2.0}, []float64{0.5}, 1, 0},
	}
	for _, tc := range cases {
		if _, err := usecase.NewLevelManager(tc.symbol, tc.thresholds, tc.mults, tc.maxLevels, tc.factor, nil); err == nil {
			t.Errorf("%s: expected constructor error", tc.name)
		}
	}
}

func TestLevelManager_EntryTriggers(t *testing.T) {
	m := newTestManager(t, nil)

	// Signal -2.2 crosses thresholds 1.5 and 2.0 on the buy side only.
	buys := m.GetTriggeredEntryLevels(-2.2, domain.SideBuy)
	if len(buys) != 2 || !floatEquals(buys[0], 1.5) || !floatEquals(buys[1], 2.0) {
		t.Errorf("Expected buy triggers [1.5 2.0], got %v", buys)
	}
	if sells := m.GetTriggeredEntryLevels(-2.2, domain.SideSell); len(sells) != 0 {
		t.Errorf("Expected no sell triggers at -2.2, got %v", sells)
	}

	// A live level suppresses its own slot but not the mirror side.
	if _, created := m.CreateLevel(t0, domain.SideBuy, 1.5, 10, 100.0, -2.2); !created {
		t.Fatalf("level not created")
	}
	buys = m.GetTriggeredEntryLevels(-2.2, domain.SideBuy)
	if len(buys) != 1 || !floatEquals(buys[0], 2.0) {
		t.Errorf("Expected remaining buy trigger [2.0], got %v", buys)
	}
	if sells := m.GetTriggeredEntryLevels(2.6, domain.SideSell); len(sells) != 3 {
		t.Errorf("Expected all sell thresholds at 2.6, got %v", sells)
	}
}

func TestLevelManager_DuplicateSlotReturnsExisting(t *testing.T) {
	m := newTestManager(t, nil)

	first, created := m.CreateLevel(t0, domain.SideBuy, 2.0, 10, 100.0, -2.1)
	if !created || first == nil {
		t.Fatalf("first level not created")
	}
	second, created := m.CreateLevel(t0, domain.SideBuy, 2.0, 10, 99.0, -2.4)
	if created {
		t.Errorf("Expected duplicate slot to be refused")
	}
	if second != first {
		t.Errorf("Expected duplicate create to return the existing level")
	}
	if m.ActiveCount() != 1 {
		t.Errorf("Expected 1 active level, got %d", m.ActiveCount())
	}
}

func TestLevelManager_CapacityBound(t *testing.T) {
	sink := &RecordingSink{}
	m := newTestManager(t, sink)

	// maxConcurrent is 2: the third eligible slot is refused until one
	// level completes.
	if _, created := m.CreateLevel(t0, domain.SideBuy, 1.5, 4, 100.0, -2.6); !created {
		t.Fatalf("level 1 not created")
	}
	if _, created := m.CreateLevel(t0, domain.SideBuy, 2.0, 4, 100.0, -2.6); !created {
		t.Fatalf("level 2 not created")
	}
	third, created := m.CreateLevel(t0, domain.SideBuy, 2.5, 4, 100.0, -2.6)
	if created || third != nil {
		t.Errorf("Expected third level refused at capacity")
	}
	if m.ActiveCount() != 2 {
		t.Errorf("Expected 2 active, got %d", m.ActiveCount())
	}
	if len(sink.Created) != 2 {
		t.Errorf("Expected 2 created events, got %d", len(sink.Created))
	}

	// Complete level 1 (both tranches) and the slot frees up.
	m.ExecuteExit(1, 0, 101.0, t0)
	m.ExecuteExit(1, 1, 101.0, t0)
	if m.ActiveCount() != 1 || m.CompletedCount() != 1 {
		t.Errorf("Expected 1 active / 1 completed, got %d/%d", m.ActiveCount(), m.CompletedCount())
	}
	if _, created := m.CreateLevel(t0, domain.SideBuy, 2.5, 4, 100.0, -2.6); !created {
		t.Errorf("Expected capacity to free after completion")
	}
	if len(sink.Completed) != 1 || sink.Completed[0].LevelID != 1 || sink.Completed[0].Forced {
		t.Errorf("Expected natural completion event for level 1, got %+v", sink.Completed)
	}
}

func TestLevelManager_ExecuteExit(t *testing.T) {
	sink := &RecordingSink{}
	m := newTestManager(t, sink)

	lv, _ := m.CreateLevel(t0, domain.SideBuy, 2.0, 10, 100.0, -2.1)

	// Unknown level, then real tranche, then spent tranche.
	if qty := m.ExecuteExit(99, 0, 101.0, t0); qty != 0 {
		t.Errorf("Expected unknown level exit 0, got %d", qty)
	}
	if qty := m.ExecuteExit(lv.ID(), 0, 101.0, t0); qty != 5 {
		t.Errorf("Expected tranche 0 quantity 5, got %d", qty)
	}
	if qty := m.ExecuteExit(lv.ID(), 0, 101.0, t0); qty != 0 {
		t.Errorf("Expected spent tranche 0, got %d", qty)
	}

	if len(sink.Exits) != 1 {
		t.Fatalf("Expected 1 exit event, got %d", len(sink.Exits))
	}
	ev := sink.Exits[0]
	if ev.LevelID != lv.ID() || ev.ExitIndex != 0 || ev.Quantity != 5 || ev.Remaining != 5 {
		t.Errorf("Unexpected exit event %+v", ev)
	}
}

func TestLevelManager_ExitTriggersAcrossLevels(t *testing.T) {
	m := newTestManager(t, nil)

	// Level on threshold 1.5 exits earlier (exit thresholds 1.125 and 0.75)
	// than the one on 2.5 (1.875 and 1.25).
	shallow, _ := m.CreateLevel(t0, domain.SideBuy, 1.5, 4, 100.0, -2.6)
	deep, _ := m.CreateLevel(t0, domain.SideBuy, 2.5, 4, 100.0, -2.6)

	all := m.GetAllTriggeredExitLevels(-2.0)
	if len(all) != 0 {
		t.Errorf("Expected no exits at -2.0, got %v", all)
	}

	all = m.GetAllTriggeredExitLevels(-1.3)
	if len(all[shallow.ID()]) != 0 || len(all[deep.ID()]) != 1 {
		t.Errorf("Expected only deep level tranche 0 at -1.3, got %v", all)
	}

	all = m.GetAllTriggeredExitLevels(-0.5)
	if len(all[shallow.ID()]) != 2 || len(all[deep.ID()]) != 2 {
		t.Errorf("Expected all tranches at -0.5, got %v", all)
	}
}

func TestLevelManager_OrderRouting(t *testing.T) {
	m := newTestManager(t, nil)
	lv, _ := m.CreateLevel(t0, domain.SideBuy, 2.0, 10, 100.0, -2.1)

	ok := m.AddOrderToLevel(lv.ID(), domain.LevelOrder{ID: "ord-1", Type: domain.OrderTypeEntry, Side: domain.SideBuy, Quantity: 10, ExitIndex: -1, Status: domain.OrderStatusPendingNew})
	if !ok {
		t.Fatalf("AddOrderToLevel failed")
	}

	// 1. One level per order id.
	if m.AddOrderToLevel(lv.ID(), domain.LevelOrder{ID: "ord-1"}) {
		t.Errorf("Expected duplicate order id to be refused")
	}
	if m.AddOrderToLevel(42, domain.LevelOrder{ID: "ord-2"}) {
		t.Errorf("Expected unknown level to refuse order")
	}

	// 2. Lookup and status routing.
	if id, ok := m.FindLevelForOrder("ord-1"); !ok || id != lv.ID() {
		t.Errorf("Expected ord-1 to resolve to level %d, got %d (%v)", lv.ID(), id, ok)
	}
	if id, ok := m.UpdateOrderStatus("ord-1", domain.OrderStatusNew); !ok || id != lv.ID() {
		t.Errorf("Expected status routed to level %d, got %d (%v)", lv.ID(), id, ok)
	}

	// 3. Terminal status releases the id; later callbacks are no-ops.
	if _, ok := m.UpdateOrderStatus("ord-1", domain.OrderStatusFilled); !ok {
		t.Errorf("Expected Filled to route")
	}
	if _, ok := m.FindLevelForOrder("ord-1"); ok {
		t.Errorf("Expected ord-1 released after Filled")
	}
	if _, ok := m.UpdateOrderStatus("ord-1", domain.OrderStatusFilled); ok {
		t.Errorf("Expected duplicate Filled to be a no-op")
	}
}

func TestLevelManager_ForceCloseAll(t *testing.T) {
	sink := &RecordingSink{}
	m := newTestManager(t, sink)

	m.CreateLevel(t0, domain.SideBuy, 1.5, 4, 100.0, -2.6)
	m.CreateLevel(t0, domain.SideSell, 2.0, 4, 100.0, 2.6)

	ids := m.ForceCloseAllLevels(t0)
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Expected drained ids [1 2], got %v", ids)
	}
	if m.ActiveCount() != 0 || m.CompletedCount() != 2 {
		t.Errorf("Expected 0 active / 2 completed, got %d/%d", m.ActiveCount(), m.CompletedCount())
	}
	for _, ev := range sink.Completed {
		if !ev.Forced {
			t.Errorf("Expected forced completion events, got %+v", ev)
		}
	}

	// Slots are free again after the drain.
	if _, created := m.CreateLevel(t0, domain.SideBuy, 1.5, 4, 100.0, -2.6); !created {
		t.Errorf("Expected slot free after force close")
	}
}

func TestLevelManager_Snapshots(t *testing.T) {
	m := newTestManager(t, nil)
	m.CreateLevel(t0, domain.SideBuy, 2.0, 10, 100.0, -2.1)
	m.CreateLevel(t0, domain.SideSell, 1.5, 6, 100.0, 1.8)

	snaps := m.ActiveSnapshots(101.0)
	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].ID != 1 || snaps[1].ID != 2 {
		t.Errorf("Expected snapshots ordered by id, got %d then %d", snaps[0].ID, snaps[1].ID)
	}
	if !floatEquals(snaps[0].UnrealizedPnL, 10*1.0*50.0) {
		t.Errorf("Expected buy level unrealized 500, got %f", snaps[0].UnrealizedPnL)
	}
	if !floatEquals(snaps[1].UnrealizedPnL, 6*-1.0*50.0) {
		t.Errorf("Expected sell level unrealized -300, got %f", snaps[1].UnrealizedPnL)
	}
}
