package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// Reconciler compares the theoretical book against the actual book and
// issues a corrective market order when they drift apart. It lives outside
// the per-fill hot path: drift while orders are still in flight is normal,
// so it only acts when the gateway is quiet.
type Reconciler struct {
	theoretical *PositionManager
	actual      *PositionManager
	trades      *TradeManager
	sink        domain.EventSink
	logger      *zap.Logger
	symbol      string
	tolerance   int64
	timeNow     func() time.Time
}

func NewReconciler(theoretical, actual *PositionManager, trades *TradeManager, symbol string, tolerance int64, sink domain.EventSink, logger *zap.Logger) *Reconciler {
	if sink == nil {
		sink = domain.NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tolerance < 0 {
		tolerance = 0
	}
	return &Reconciler{
		theoretical: theoretical,
		actual:      actual,
		trades:      trades,
		sink:        sink,
		logger:      logger,
		symbol:      symbol,
		tolerance:   tolerance,
		timeNow:     time.Now,
	}
}

// Check measures drift (theoretical minus actual) and, when it exceeds the
// tolerance with no orders in flight, submits a market order that moves the
// actual book toward the theoretical one. Returns the drift and whether a
// correction was issued.
func (r *Reconciler) Check(ctx context.Context) (int64, bool, error) {
	theo := r.theoretical.Position()
	act := r.actual.Position()
	drift := theo - act

	if absInt64(drift) <= r.tolerance {
		return drift, false, nil
	}
	if live := r.trades.LiveCount(); live > 0 {
		// Fills for the outstanding orders may still close the gap.
		r.logger.Debug("reconcile deferred, orders in flight",
			zap.Int64("drift", drift), zap.Int("live_orders", live))
		return drift, false, nil
	}

	side := domain.SideBuy
	if drift < 0 {
		side = domain.SideSell
	}
	req := domain.OrderRequest{
		Symbol:    r.symbol,
		Side:      side,
		Quantity:  absInt64(drift),
		Type:      domain.OrderTypeCorrection,
		ExitIndex: -1,
	}

	r.logger.Warn("position drift detected, issuing correction",
		zap.Int64("theoretical", theo),
		zap.Int64("actual", act),
		zap.Int64("drift", drift),
		zap.String("side", string(side)))

	orderID, err := r.trades.Submit(ctx, req)
	if err != nil {
		return drift, false, err
	}

	r.sink.CorrectionIssued(domain.CorrectionEvent{
		Time:        r.timeNow(),
		Theoretical: theo,
		Actual:      act,
		Drift:       drift,
		Request:     req,
	})
	r.logger.Info("correction submitted", zap.String("order_id", orderID), zap.Int64("quantity", req.Quantity))
	return drift, true, nil
}

// Run checks on a fixed interval until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := r.Check(ctx); err != nil {
				r.logger.Error("reconcile check failed", zap.Error(err))
			}
		}
	}
}
