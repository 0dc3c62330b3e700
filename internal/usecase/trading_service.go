package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// Params holds the strategy knobs the host tunes per deployment.
type Params struct {
	EntryThresholds     []float64
	ExitMultipliers     []float64
	MaxConcurrentLevels int
	LevelSize           int64
	ReconcileTolerance  int64
}

func (p Params) validate() error {
	if p.LevelSize <= 0 {
		return fmt.Errorf("params: level size must be positive, got %d", p.LevelSize)
	}
	if p.ReconcileTolerance < 0 {
		return fmt.Errorf("params: reconcile tolerance must not be negative, got %d", p.ReconcileTolerance)
	}
	return nil
}

// TradingService drives the whole engine from host events. Each bar/signal
// update runs exits, then entries, then marks both position books; fill and
// order-status callbacks keep the actual book and the order tables current.
// Everything that can block, order submission above all, happens outside
// the managers' locks.
type TradingService struct {
	instrument domain.Instrument
	params     Params

	levels      *LevelManager
	theoretical *PositionManager
	actual      *PositionManager
	trades      *TradeManager
	reconciler  *Reconciler

	sink    domain.EventSink
	logger  *zap.Logger
	timeNow func() time.Time

	mu         sync.Mutex
	lastBar    domain.Bar
	lastSignal float64
}

func NewTradingService(instrument domain.Instrument, params Params, gateway domain.OrderGateway, sink domain.EventSink, logger *zap.Logger) (*TradingService, error) {
	if gateway == nil {
		return nil, fmt.Errorf("trading service: order gateway is required")
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	levels, err := NewLevelManager(instrument.Symbol, params.EntryThresholds, params.ExitMultipliers, params.MaxConcurrentLevels, instrument.Factor, sink)
	if err != nil {
		return nil, err
	}
	theoretical, err := NewPositionManager("theoretical", instrument.Symbol, instrument.Factor, sink)
	if err != nil {
		return nil, err
	}
	actual, err := NewPositionManager("actual", instrument.Symbol, instrument.Factor, domain.NopSink{})
	if err != nil {
		return nil, err
	}
	trades, err := NewTradeManager(gateway, sink)
	if err != nil {
		return nil, err
	}

	s := &TradingService{
		instrument:  instrument,
		params:      params,
		levels:      levels,
		theoretical: theoretical,
		actual:      actual,
		trades:      trades,
		sink:        sink,
		logger:      logger,
		timeNow:     time.Now,
	}
	s.reconciler = NewReconciler(theoretical, actual, trades, instrument.Symbol, params.ReconcileTolerance, sink, logger)
	return s, nil
}

// ProcessUpdate handles one completed bar and its signal. Exits run before
// entries so a level completed this bar frees capacity immediately. Order
// submission failures are collected and returned, never fatal: the
// theoretical book has already moved and the reconciler will close the gap.
func (s *TradingService) ProcessUpdate(ctx context.Context, bar domain.Bar, signal float64) error {
	s.mu.Lock()
	s.lastBar = bar
	s.lastSignal = signal
	s.mu.Unlock()

	var errs error

	triggered := s.levels.GetAllTriggeredExitLevels(signal)
	ids := make([]int64, 0, len(triggered))
	for id := range triggered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		side, ok := s.levels.LevelSide(id)
		if !ok {
			continue
		}
		closeSide := side.Opposite()
		for _, idx := range triggered[id] {
			qty := s.levels.ExecuteExit(id, idx, bar.Close, bar.Time)
			if qty == 0 {
				continue
			}
			s.theoretical.OnFill(closeSide, qty, bar.Close, bar.Time)
			s.logger.Info("exit executed",
				zap.Int64("level_id", id),
				zap.Int("exit_index", idx),
				zap.Int64("quantity", qty),
				zap.Float64("price", bar.Close),
				zap.Float64("signal", signal))
			errs = multierr.Append(errs, s.routeOrder(ctx, domain.OrderRequest{
				Symbol:    s.instrument.Symbol,
				Side:      closeSide,
				Quantity:  qty,
				Type:      domain.OrderTypeExit,
				LevelID:   id,
				ExitIndex: idx,
			}))
		}
	}

	for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
		for _, th := range s.levels.GetTriggeredEntryLevels(signal, side) {
			lv, created := s.levels.CreateLevel(bar.Time, side, th, s.params.LevelSize, bar.Close, signal)
			if !created {
				if lv == nil {
					s.logger.Debug("entry skipped, level capacity reached",
						zap.String("side", string(side)),
						zap.Float64("threshold", th))
				}
				continue
			}
			s.theoretical.OnFill(side, s.params.LevelSize, bar.Close, bar.Time)
			s.logger.Info("level created",
				zap.Int64("level_id", lv.ID()),
				zap.String("side", string(side)),
				zap.Float64("threshold", th),
				zap.Float64("signal", signal),
				zap.Float64("price", bar.Close),
				zap.Int64("size", s.params.LevelSize))
			errs = multierr.Append(errs, s.routeOrder(ctx, domain.OrderRequest{
				Symbol:    s.instrument.Symbol,
				Side:      side,
				Quantity:  s.params.LevelSize,
				Type:      domain.OrderTypeEntry,
				LevelID:   lv.ID(),
				ExitIndex: -1,
			}))
		}
	}

	s.theoretical.UpdateTradeMetric(bar)
	s.actual.UpdateTradeMetric(bar)
	s.levels.CleanupCompletedOrders()
	return errs
}

func (s *TradingService) routeOrder(ctx context.Context, req domain.OrderRequest) error {
	orderID, err := s.trades.Submit(ctx, req)
	if err != nil {
		s.logger.Error("order submission failed",
			zap.String("side", string(req.Side)),
			zap.Int64("quantity", req.Quantity),
			zap.Int64("level_id", req.LevelID),
			zap.Error(err))
		return err
	}
	if req.LevelID != 0 {
		s.levels.AddOrderToLevel(req.LevelID, domain.LevelOrder{
			ID:        orderID,
			Type:      req.Type,
			Side:      req.Side,
			Quantity:  req.Quantity,
			Price:     req.LimitPrice,
			ExitIndex: req.ExitIndex,
			Status:    domain.OrderStatusPendingNew,
		})
	}
	return nil
}

// OnFill applies one host execution to the actual book and attributes it to
// its level for the audit trail.
func (s *TradingService) OnFill(fill domain.Fill) {
	if fill.Quantity <= 0 {
		return
	}
	s.actual.OnFill(fill.Side, fill.Quantity, fill.Price, fill.Time)

	if levelID, ok := s.levels.FindLevelForOrder(fill.OrderID); ok {
		s.logger.Debug("fill attributed",
			zap.String("order_id", fill.OrderID),
			zap.Int64("level_id", levelID),
			zap.String("side", string(fill.Side)),
			zap.Int64("quantity", fill.Quantity),
			zap.Float64("price", fill.Price))
	} else {
		s.logger.Debug("fill for untracked order",
			zap.String("order_id", fill.OrderID),
			zap.Int64("quantity", fill.Quantity))
	}
}

// OnOrderStatus advances the order in both the live table and its level.
func (s *TradingService) OnOrderStatus(ev domain.OrderStatusEvent) {
	known := s.trades.OnOrderStatus(ev)
	levelID, routed := s.levels.UpdateOrderStatus(ev.OrderID, ev.Status)
	if !known && !routed {
		s.logger.Debug("status for unknown order",
			zap.String("order_id", ev.OrderID),
			zap.String("status", string(ev.Status)))
		return
	}
	s.logger.Debug("order status",
		zap.String("order_id", ev.OrderID),
		zap.String("status", string(ev.Status)),
		zap.Int64("level_id", levelID))
}

// ForceCloseAll drains every active level without emitting exit orders and
// cancels whatever is still working at the gateway.
func (s *TradingService) ForceCloseAll(ctx context.Context) error {
	ids := s.levels.ForceCloseAllLevels(s.timeNow())
	err := s.trades.CancelAll(ctx)
	s.logger.Warn("force close all",
		zap.Int("levels_drained", len(ids)),
		zap.Error(err))
	return err
}

// Reconcile runs one drift check between the books.
func (s *TradingService) Reconcile(ctx context.Context) (int64, bool, error) {
	return s.reconciler.Check(ctx)
}

// StartReconciler runs periodic drift checks until ctx is cancelled.
func (s *TradingService) StartReconciler(ctx context.Context, interval time.Duration) {
	go s.reconciler.Run(ctx, interval)
}

// Status assembles the aggregate view for the web layer.
func (s *TradingService) Status() domain.EngineStatus {
	s.mu.Lock()
	bar := s.lastBar
	signal := s.lastSignal
	s.mu.Unlock()

	theo := s.theoretical.Snapshot()
	act := s.actual.Snapshot()
	return domain.EngineStatus{
		Symbol:          s.instrument.Symbol,
		Time:            bar.Time,
		LastPrice:       bar.Close,
		LastSignal:      signal,
		ActiveLevels:    s.levels.ActiveCount(),
		CompletedLevels: s.levels.CompletedCount(),
		LiveOrders:      s.trades.LiveCount(),
		Theoretical:     theo,
		Actual:          act,
		Drift:           theo.Position - act.Position,
	}
}

// ActiveLevelSnapshots marks active levels at the last seen price.
func (s *TradingService) ActiveLevelSnapshots() []domain.LevelSnapshot {
	s.mu.Lock()
	price := s.lastBar.Close
	s.mu.Unlock()
	return s.levels.ActiveSnapshots(price)
}

// CompletedLevelSnapshots returns completed levels in completion order.
func (s *TradingService) CompletedLevelSnapshots() []domain.LevelSnapshot {
	s.mu.Lock()
	price := s.lastBar.Close
	s.mu.Unlock()
	return s.levels.CompletedSnapshots(price)
}

// LiveOrders lists the orders still working at the gateway.
func (s *TradingService) LiveOrders() []domain.WorkingOrder {
	return s.trades.LiveOrders()
}

// Cycles returns the theoretical book's completed trade cycles.
func (s *TradingService) Cycles() []domain.CycleRecord {
	return s.theoretical.Cycles()
}
