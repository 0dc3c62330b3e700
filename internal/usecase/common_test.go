package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vitos/signal_level_engine/internal/domain"
)

const epsilon = 0.000001

func floatEquals(a, b float64) bool {
	return (a-b) < epsilon && (b-a) < epsilon
}

var t0 = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func barAt(price float64, minute int) domain.Bar {
	return domain.Bar{
		Symbol: "ES",
		Time:   t0.Add(time.Duration(minute) * time.Minute),
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: 100,
	}
}

// MockGateway records every request and hands out sequential order ids.
type MockGateway struct {
	mu        sync.Mutex
	Requests  []domain.OrderRequest
	Cancelled []string
	NextErr   error // returned by the next PlaceOrder, then cleared
	FailAll   bool
	CancelErr error
	seq       int
}

func (g *MockGateway) PlaceOrder(ctx context.Context, req domain.OrderRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.NextErr != nil {
		err := g.NextErr
		g.NextErr = nil
		return "", err
	}
	if g.FailAll {
		return "", fmt.Errorf("gateway unavailable")
	}
	g.seq++
	g.Requests = append(g.Requests, req)
	return fmt.Sprintf("ord-%d", g.seq), nil
}

func (g *MockGateway) CancelOrder(ctx context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CancelErr != nil {
		return g.CancelErr
	}
	g.Cancelled = append(g.Cancelled, orderID)
	return nil
}

func (g *MockGateway) RequestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}

func (g *MockGateway) LastID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("ord-%d", g.seq)
}

// RecordingSink captures engine events for assertions.
type RecordingSink struct {
	mu          sync.Mutex
	Created     []domain.LevelCreatedEvent
	Exits       []domain.ExitExecutedEvent
	Completed   []domain.LevelCompletedEvent
	Cycles      []domain.CycleRecord
	Submitted   []domain.OrderSubmittedEvent
	Corrections []domain.CorrectionEvent
	Closed      bool
}

func (s *RecordingSink) LevelCreated(ev domain.LevelCreatedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Created = append(s.Created, ev)
}

func (s *RecordingSink) ExitExecuted(ev domain.ExitExecutedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Exits = append(s.Exits, ev)
}

func (s *RecordingSink) LevelCompleted(ev domain.LevelCompletedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Completed = append(s.Completed, ev)
}

func (s *RecordingSink) CycleCompleted(rec domain.CycleRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Cycles = append(s.Cycles, rec)
}

func (s *RecordingSink) OrderSubmitted(ev domain.OrderSubmittedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Submitted = append(s.Submitted, ev)
}

func (s *RecordingSink) CorrectionIssued(ev domain.CorrectionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Corrections = append(s.Corrections, ev)
}

func (s *RecordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

func (s *RecordingSink) CycleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Cycles)
}
