package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// SQLiteStore is the persistent audit trail: every engine event lands in
// engine_events and every completed trade cycle in cycles. It doubles as an
// EventSink; writes go through a single background goroutine so the engine
// hot path never waits on disk.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger

	mu     sync.Mutex
	queue  chan func()
	done   chan struct{}
	closed bool
}

func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger,
		queue:  make(chan func(), 1024),
		done:   make(chan struct{}),
	}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	go store.run()
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			first_fill DATETIME NOT NULL,
			last_fill DATETIME NOT NULL,
			entry_price REAL NOT NULL,
			average_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			average_price_delta REAL NOT NULL,
			cycle_time_min REAL NOT NULL,
			time_since_last_fill_min REAL NOT NULL,
			max_adverse_excursion REAL NOT NULL,
			max_favorable_excursion REAL NOT NULL,
			max_position INTEGER NOT NULL,
			pnl REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_symbol ON cycles(symbol);`,
		`CREATE TABLE IF NOT EXISTS engine_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			time DATETIME NOT NULL,
			kind TEXT NOT NULL,
			level_id INTEGER NOT NULL DEFAULT 0,
			order_id TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON engine_events(kind);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) run() {
	for fn := range s.queue {
		fn()
	}
	close(s.done)
}

func (s *SQLiteStore) enqueue(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- fn:
		return true
	default:
		s.logger.Warn("audit queue full, event dropped")
		return false
	}
}

// Flush blocks until every queued write has been applied.
func (s *SQLiteStore) Flush() {
	ch := make(chan struct{})
	if !s.enqueue(func() { close(ch) }) {
		return
	}
	<-ch
}

// Close drains the write queue and closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return s.db.Close()
}

func (s *SQLiteStore) insertEvent(t time.Time, kind string, levelID int64, orderID, detail string) {
	query := `INSERT INTO engine_events (time, kind, level_id, order_id, detail) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query, t, kind, levelID, orderID, detail); err != nil {
		s.logger.Error("failed to persist engine event", zap.String("kind", kind), zap.Error(err))
	}
}

// EventSink implementation

func (s *SQLiteStore) LevelCreated(ev domain.LevelCreatedEvent) {
	s.enqueue(func() {
		detail := fmt.Sprintf("side=%s threshold=%.4f signal=%.4f price=%.4f size=%d",
			ev.Side, ev.Threshold, ev.Signal, ev.Price, ev.Size)
		s.insertEvent(ev.Time, "level_created", ev.LevelID, "", detail)
	})
}

func (s *SQLiteStore) ExitExecuted(ev domain.ExitExecutedEvent) {
	s.enqueue(func() {
		detail := fmt.Sprintf("exit_index=%d quantity=%d price=%.4f remaining=%d",
			ev.ExitIndex, ev.Quantity, ev.Price, ev.Remaining)
		s.insertEvent(ev.Time, "exit_executed", ev.LevelID, "", detail)
	})
}

func (s *SQLiteStore) LevelCompleted(ev domain.LevelCompletedEvent) {
	s.enqueue(func() {
		detail := fmt.Sprintf("forced=%t", ev.Forced)
		s.insertEvent(ev.Time, "level_completed", ev.LevelID, "", detail)
	})
}

func (s *SQLiteStore) CycleCompleted(rec domain.CycleRecord) {
	s.enqueue(func() {
		if err := s.SaveCycle(context.Background(), &rec); err != nil {
			s.logger.Error("failed to persist cycle", zap.Int64("cycle_id", rec.ID), zap.Error(err))
		}
		detail := fmt.Sprintf("side=%s max_position=%d pnl=%.2f", rec.Side, rec.MaxPosition, rec.PnL)
		s.insertEvent(rec.LastFill, "cycle_completed", 0, "", detail)
	})
}

func (s *SQLiteStore) OrderSubmitted(ev domain.OrderSubmittedEvent) {
	s.enqueue(func() {
		detail := fmt.Sprintf("type=%s side=%s quantity=%d limit=%.4f exit_index=%d",
			ev.Request.Type, ev.Request.Side, ev.Request.Quantity, ev.Request.LimitPrice, ev.Request.ExitIndex)
		s.insertEvent(ev.Time, "order_submitted", ev.Request.LevelID, ev.OrderID, detail)
	})
}

func (s *SQLiteStore) CorrectionIssued(ev domain.CorrectionEvent) {
	s.enqueue(func() {
		detail := fmt.Sprintf("theoretical=%d actual=%d drift=%d side=%s quantity=%d",
			ev.Theoretical, ev.Actual, ev.Drift, ev.Request.Side, ev.Request.Quantity)
		s.insertEvent(ev.Time, "correction_issued", 0, "", detail)
	})
}

// AuditRepository implementation

func (s *SQLiteStore) SaveCycle(ctx context.Context, rec *domain.CycleRecord) error {
	query := `INSERT INTO cycles (cycle_id, symbol, side, first_fill, last_fill, entry_price, average_price, exit_price,
			  average_price_delta, cycle_time_min, time_since_last_fill_min, max_adverse_excursion, max_favorable_excursion, max_position, pnl)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Symbol, rec.Side, rec.FirstFill, rec.LastFill, rec.EntryPrice, rec.AveragePrice, rec.ExitPrice,
		rec.AveragePriceDelta, rec.CycleTimeMin, rec.TimeSinceLastFillMin, rec.MaxAdverseExcursion, rec.MaxFavorableExcursion, rec.MaxPosition, rec.PnL)
	return err
}

func (s *SQLiteStore) ListCycles(ctx context.Context, limit int) ([]*domain.CycleRecord, error) {
	query := `SELECT cycle_id, symbol, side, first_fill, last_fill, entry_price, average_price, exit_price,
			  average_price_delta, cycle_time_min, time_since_last_fill_min, max_adverse_excursion, max_favorable_excursion, max_position, pnl
			  FROM cycles ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []*domain.CycleRecord
	for rows.Next() {
		var c domain.CycleRecord
		if err := rows.Scan(&c.ID, &c.Symbol, &c.Side, &c.FirstFill, &c.LastFill, &c.EntryPrice, &c.AveragePrice, &c.ExitPrice,
			&c.AveragePriceDelta, &c.CycleTimeMin, &c.TimeSinceLastFillMin, &c.MaxAdverseExcursion, &c.MaxFavorableExcursion, &c.MaxPosition, &c.PnL); err != nil {
			return nil, err
		}
		cycles = append(cycles, &c)
	}
	return cycles, rows.Err()
}

func (s *SQLiteStore) ListEvents(ctx context.Context, limit int) ([]*domain.AuditEvent, error) {
	query := `SELECT id, time, kind, level_id, order_id, detail FROM engine_events ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.Time, &e.Kind, &e.LevelID, &e.OrderID, &e.Detail); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
