package domain

import (
	"time"

	"go.uber.org/multierr"
)

// LevelCreatedEvent is emitted once per accepted entry.
type LevelCreatedEvent struct {
	Time      time.Time `json:"time"`
	LevelID   int64     `json:"level_id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Threshold float64   `json:"threshold"`
	Signal    float64   `json:"signal"`
	Price     float64   `json:"price"`
	Size      int64     `json:"size"`
}

// ExitExecutedEvent is emitted once per executed exit tranche.
type ExitExecutedEvent struct {
	Time      time.Time `json:"time"`
	LevelID   int64     `json:"level_id"`
	ExitIndex int       `json:"exit_index"`
	Quantity  int64     `json:"quantity"`
	Price     float64   `json:"price"`
	Remaining int64     `json:"remaining"`
}

// LevelCompletedEvent is emitted when a level leaves the active set.
type LevelCompletedEvent struct {
	Time    time.Time `json:"time"`
	LevelID int64     `json:"level_id"`
	Forced  bool      `json:"forced"`
}

// OrderSubmittedEvent is emitted after the gateway accepts a request.
type OrderSubmittedEvent struct {
	Time    time.Time    `json:"time"`
	OrderID string       `json:"order_id"`
	Request OrderRequest `json:"request"`
}

// CorrectionEvent is emitted when the reconciler issues a corrective order.
type CorrectionEvent struct {
	Time        time.Time    `json:"time"`
	Theoretical int64        `json:"theoretical"`
	Actual      int64        `json:"actual"`
	Drift       int64        `json:"drift"`
	Request     OrderRequest `json:"request"`
}

// EventSink observes engine lifecycle events. Implementations must not
// block: the engine calls them on its hot path, outside its own locks.
type EventSink interface {
	LevelCreated(ev LevelCreatedEvent)
	ExitExecuted(ev ExitExecutedEvent)
	LevelCompleted(ev LevelCompletedEvent)
	CycleCompleted(rec CycleRecord)
	OrderSubmitted(ev OrderSubmittedEvent)
	CorrectionIssued(ev CorrectionEvent)
	Close() error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) LevelCreated(LevelCreatedEvent)     {}
func (NopSink) ExitExecuted(ExitExecutedEvent)     {}
func (NopSink) LevelCompleted(LevelCompletedEvent) {}
func (NopSink) CycleCompleted(CycleRecord)         {}
func (NopSink) OrderSubmitted(OrderSubmittedEvent) {}
func (NopSink) CorrectionIssued(CorrectionEvent)   {}
func (NopSink) Close() error                       { return nil }

// MultiSink fans every event out to each child sink in order.
type MultiSink struct {
	sinks []EventSink
}

func NewMultiSink(sinks ...EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) LevelCreated(ev LevelCreatedEvent) {
	for _, s := range m.sinks {
		s.LevelCreated(ev)
	}
}

func (m *MultiSink) ExitExecuted(ev ExitExecutedEvent) {
	for _, s := range m.sinks {
		s.ExitExecuted(ev)
	}
}

func (m *MultiSink) LevelCompleted(ev LevelCompletedEvent) {
	for _, s := range m.sinks {
		s.LevelCompleted(ev)
	}
}

func (m *MultiSink) CycleCompleted(rec CycleRecord) {
	for _, s := range m.sinks {
		s.CycleCompleted(rec)
	}
}

func (m *MultiSink) OrderSubmitted(ev OrderSubmittedEvent) {
	for _, s := range m.sinks {
		s.OrderSubmitted(ev)
	}
}

func (m *MultiSink) CorrectionIssued(ev CorrectionEvent) {
	for _, s := range m.sinks {
		s.CorrectionIssued(ev)
	}
}

func (m *MultiSink) Close() error {
	var err error
	for _, s := range m.sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}
