package usecase_test

import (
	"testing"
	"time"

	"github.com/vitos/signal_level_engine/internal/domain"
	"github.com/vitos/signal_level_engine/internal/usecase"
)

func newTestBook(t *testing.T, sink domain.EventSink) *usecase.PositionManager {
	t.Helper()
	m, err := usecase.NewPositionManager("theoretical", "ES", 50.0, sink)
	if err != nil {
		t.Fatalf("NewPositionManager: %v", err)
	}
	return m
}

func TestPositionManager_Validation(t *testing.T) {
	if _, err := usecase.NewPositionManager("", "ES", 50.0, nil); err == nil {
		t.Errorf("Expected error for empty name")
	}
	if _, err := usecase.NewPositionManager("actual", "", 50.0, nil); err == nil {
		t.Errorf("Expected error for empty symbol")
	}
	if _, err := usecase.NewPositionManager("actual", "ES", 0, nil); err == nil {
		t.Errorf("Expected error for zero factor")
	}
}

func TestPositionManager_AveragePriceBlend(t *testing.T) {
	m := newTestBook(t, nil)

	// Buy 5 @ 100 then buy 3 @ 102: average (5*100 + 3*102) / 8 = 100.75.
	m.OnFill(domain.SideBuy, 5, 100.0, t0)
	m.OnFill(domain.SideBuy, 3, 102.0, t0.Add(time.Minute))

	if m.Position() != 8 {
		t.Errorf("Expected position 8, got %d", m.Position())
	}
	if !floatEquals(m.AveragePrice(), 100.75) {
		t.Errorf("Expected average price 100.75, got %f", m.AveragePrice())
	}
	if m.RealizedPnL() != 0 {
		t.Errorf("Expected no realized PnL on adds, got %f", m.RealizedPnL())
	}

	cur, ok := m.CurrentCycle()
	if !ok {
		t.Fatalf("Expected an open cycle")
	}
	if cur.MaxPosition != 8 {
		t.Errorf("Expected max position 8, got %d", cur.MaxPosition)
	}
	if !floatEquals(cur.EntryPrice, 100.0) {
		t.Errorf("Expected cycle entry price 100, got %f", cur.EntryPrice)
	}
}

func TestPositionManager_ReduceAndClose(t *testing.T) {
	sink := &RecordingSink{}
	m := newTestBook(t, sink)

	m.OnFill(domain.SideBuy, 6, 100.0, t0)
	m.OnFill(domain.SideSell, 2, 101.0, t0.Add(time.Minute))

	// Partial reduction realizes against the average: +1 point on 2
	// contracts at factor 50.
	if m.Position() != 4 {
		t.Errorf("Expected position 4, got %d", m.Position())
	}
	if !floatEquals(m.RealizedPnL(), 2*1.0*50.0) {
		t.Errorf("Expected realized 100, got %f", m.RealizedPnL())
	}
	if !floatEquals(m.AveragePrice(), 100.0) {
		t.Errorf("Expected average unchanged at 100, got %f", m.AveragePrice())
	}
	if sink.CycleCount() != 0 {
		t.Errorf("Expected no cycle while position open")
	}

	// Closing the remainder finishes the cycle.
	m.OnFill(domain.SideSell, 4, 102.0, t0.Add(2*time.Minute))
	if m.Position() != 0 {
		t.Errorf("Expected flat, got %d", m.Position())
	}
	if !floatEquals(m.RealizedPnL(), 100.0+4*2.0*50.0) {
		t.Errorf("Expected realized 500, got %f", m.RealizedPnL())
	}
	if m.AveragePrice() != 0 {
		t.Errorf("Expected average reset to 0, got %f", m.AveragePrice())
	}
	if sink.CycleCount() != 1 || m.CycleCount() != 1 {
		t.Fatalf("Expected exactly one completed cycle")
	}
	if _, ok := m.CurrentCycle(); ok {
		t.Errorf("Expected no open cycle after close")
	}

	rec := m.Cycles()[0]
	if rec.Side != domain.SideBuy || rec.MaxPosition != 6 {
		t.Errorf("Unexpected cycle record %+v", rec)
	}
	if !floatEquals(rec.ExitPrice, 102.0) || !floatEquals(rec.EntryPrice, 100.0) {
		t.Errorf("Expected entry 100 exit 102, got %f/%f", rec.EntryPrice, rec.ExitPrice)
	}
}

func TestPositionManager_ShortSide(t *testing.T) {
	m := newTestBook(t, nil)

	// Short 4 @ 100, cover at 98: +2 points on 4 contracts.
	m.OnFill(domain.SideSell, 4, 100.0, t0)
	if m.Position() != -4 {
		t.Errorf("Expected position -4, got %d", m.Position())
	}
	m.OnFill(domain.SideBuy, 4, 98.0, t0.Add(time.Minute))
	if !floatEquals(m.RealizedPnL(), 4*2.0*50.0) {
		t.Errorf("Expected realized 400, got %f", m.RealizedPnL())
	}

	// Covering a short above average is a loss.
	m.OnFill(domain.SideSell, 2, 100.0, t0.Add(2*time.Minute))
	m.OnFill(domain.SideBuy, 2, 103.0, t0.Add(3*time.Minute))
	if !floatEquals(m.RealizedPnL(), 400.0+2*-3.0*50.0) {
		t.Errorf("Expected realized 100, got %f", m.RealizedPnL())
	}
}

func TestPositionManager_Reversal(t *testing.T) {
	sink := &RecordingSink{}
	m := newTestBook(t, sink)

	// Long 5 @ 100, then one sell of 8 @ 99: the fill closes the long for
	// -1 point on 5 contracts and opens a short of 3 at 99.
	m.OnFill(domain.SideBuy, 5, 100.0, t0)
	m.OnFill(domain.SideSell, 8, 99.0, t0.Add(time.Minute))

	if m.Position() != -3 {
		t.Errorf("Expected position -3, got %d", m.Position())
	}
	if !floatEquals(m.RealizedPnL(), 5*-1.0*50.0) {
		t.Errorf("Expected realized -250, got %f", m.RealizedPnL())
	}
	if !floatEquals(m.AveragePrice(), 99.0) {
		t.Errorf("Expected new average 99, got %f", m.AveragePrice())
	}
	if sink.CycleCount() != 1 {
		t.Fatalf("Expected reversal to close one cycle")
	}

	cur, ok := m.CurrentCycle()
	if !ok {
		t.Fatalf("Expected reopened cycle")
	}
	if cur.Side != domain.SideSell || cur.MaxPosition != 3 || !floatEquals(cur.EntryPrice, 99.0) {
		t.Errorf("Unexpected reopened cycle %+v", cur)
	}
}

func TestPositionManager_ZeroQuantityFill(t *testing.T) {
	m := newTestBook(t, nil)
	m.OnFill(domain.SideBuy, 3, 100.0, t0)

	before := m.Snapshot()
	m.OnFill(domain.SideSell, 0, 120.0, t0.Add(time.Minute))
	m.OnFill(domain.SideBuy, -2, 80.0, t0.Add(time.Minute))
	after := m.Snapshot()

	// A zero-quantity fill contributes exactly zero: no epsilon, no state.
	if after != before {
		t.Errorf("Expected state unchanged, before %+v after %+v", before, after)
	}
	if after.RealizedPnL != 0.0 {
		t.Errorf("Expected realized exactly 0, got %v", after.RealizedPnL)
	}
}

func TestPositionManager_SignedSumInvariant(t *testing.T) {
	m := newTestBook(t, nil)

	fills := []struct {
		side domain.Side
		qty  int64
	}{
		{domain.SideBuy, 5}, {domain.SideSell, 2}, {domain.SideSell, 7},
		{domain.SideBuy, 1}, {domain.SideBuy, 10}, {domain.SideSell, 7},
	}
	var sum int64
	price := 100.0
	for i, f := range fills {
		m.OnFill(f.side, f.qty, price+float64(i), t0.Add(time.Duration(i)*time.Minute))
		sum += f.qty * f.side.Sign()
		if m.Position() != sum {
			t.Fatalf("After fill %d expected position %d, got %d", i, sum, m.Position())
		}
	}
}

func TestPositionManager_UnrealizedMarking(t *testing.T) {
	m := newTestBook(t, nil)
	m.OnFill(domain.SideBuy, 4, 100.0, t0)

	m.UpdateTradeMetric(barAt(102.0, 1))
	if !floatEquals(m.UnrealizedPnL(), 4*2.0*50.0) {
		t.Errorf("Expected unrealized 400, got %f", m.UnrealizedPnL())
	}

	m.UpdateTradeMetric(barAt(97.0, 2))
	if !floatEquals(m.UnrealizedPnL(), 4*-3.0*50.0) {
		t.Errorf("Expected unrealized -600, got %f", m.UnrealizedPnL())
	}

	// Marks feed the cycle excursions from the entry price.
	cur, _ := m.CurrentCycle()
	if !floatEquals(cur.MaxFavorable, 2.0) {
		t.Errorf("Expected max favorable 2.0, got %f", cur.MaxFavorable)
	}
	if !floatEquals(cur.MaxAdverse, -3.0) {
		t.Errorf("Expected max adverse -3.0, got %f", cur.MaxAdverse)
	}

	// Flat book marks to zero.
	m.OnFill(domain.SideSell, 4, 98.0, t0.Add(3*time.Minute))
	m.UpdateTradeMetric(barAt(90.0, 4))
	if m.UnrealizedPnL() != 0 {
		t.Errorf("Expected unrealized 0 when flat, got %f", m.UnrealizedPnL())
	}
}

func TestPositionManager_Reset(t *testing.T) {
	m := newTestBook(t, nil)
	m.OnFill(domain.SideBuy, 5, 100.0, t0)
	m.OnFill(domain.SideSell, 5, 101.0, t0.Add(time.Minute))
	m.OnFill(domain.SideSell, 2, 101.0, t0.Add(2*time.Minute))

	m.Reset()
	snap := m.Snapshot()
	if snap.Position != 0 || snap.AveragePrice != 0 || snap.RealizedPnL != 0 || snap.UnrealizedPnL != 0 || snap.CycleCount != 0 {
		t.Errorf("Expected clean book after reset, got %+v", snap)
	}
	if _, ok := m.CurrentCycle(); ok {
		t.Errorf("Expected no open cycle after reset")
	}

	// The book is immediately usable for a new session.
	m.OnFill(domain.SideBuy, 2, 50.0, t0.Add(time.Hour))
	if m.Position() != 2 || !floatEquals(m.AveragePrice(), 50.0) {
		t.Errorf("Expected fresh open after reset, got %d @ %f", m.Position(), m.AveragePrice())
	}
}
