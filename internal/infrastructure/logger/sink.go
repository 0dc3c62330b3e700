package logger

import (
	"github.com/vitos/signal_level_engine/internal/domain"
	"go.uber.org/zap"
)

var _ domain.EventSink = (*ZapSink)(nil)

// ZapSink mirrors engine lifecycle events into the log stream. Cycle
// completions log at Info, everything else at Debug.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

func (z *ZapSink) LevelCreated(ev domain.LevelCreatedEvent) {
	z.log.Debug("Level created",
		zap.Int64("level_id", ev.LevelID),
		zap.String("symbol", ev.Symbol),
		zap.String("side", string(ev.Side)),
		zap.Float64("threshold", ev.Threshold),
		zap.Float64("signal", ev.Signal),
		zap.Float64("price", ev.Price),
		zap.Int64("size", ev.Size))
}

func (z *ZapSink) ExitExecuted(ev domain.ExitExecutedEvent) {
	z.log.Debug("Exit executed",
		zap.Int64("level_id", ev.LevelID),
		zap.Int("exit_index", ev.ExitIndex),
		zap.Int64("quantity", ev.Quantity),
		zap.Float64("price", ev.Price),
		zap.Int64("remaining", ev.Remaining))
}

func (z *ZapSink) LevelCompleted(ev domain.LevelCompletedEvent) {
	z.log.Debug("Level completed",
		zap.Int64("level_id", ev.LevelID),
		zap.Bool("forced", ev.Forced))
}

func (z *ZapSink) CycleCompleted(rec domain.CycleRecord) {
	z.log.Info("Cycle completed",
		zap.Int64("cycle_id", rec.ID),
		zap.String("symbol", rec.Symbol),
		zap.String("side", string(rec.Side)),
		zap.Float64("entry_price", rec.EntryPrice),
		zap.Float64("exit_price", rec.ExitPrice),
		zap.Int64("max_position", rec.MaxPosition),
		zap.Float64("cycle_time_min", rec.CycleTimeMin),
		zap.Float64("pnl", rec.PnL))
}

func (z *ZapSink) OrderSubmitted(ev domain.OrderSubmittedEvent) {
	z.log.Debug("Order submitted",
		zap.String("order_id", ev.OrderID),
		zap.String("side", string(ev.Request.Side)),
		zap.Int64("quantity", ev.Request.Quantity),
		zap.String("type", string(ev.Request.Type)),
		zap.Int64("level_id", ev.Request.LevelID))
}

func (z *ZapSink) CorrectionIssued(ev domain.CorrectionEvent) {
	z.log.Debug("Correction issued",
		zap.Int64("theoretical", ev.Theoretical),
		zap.Int64("actual", ev.Actual),
		zap.Int64("drift", ev.Drift),
		zap.Int64("quantity", ev.Request.Quantity))
}

func (z *ZapSink) Close() error { return nil }
