package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// TradeManager is the thin adapter between the engine and the host order
// gateway. It validates requests, forwards them, and tracks which orders
// are still live. It never blocks while holding its lock: gateway calls
// happen first, bookkeeping after.
type TradeManager struct {
	mu      sync.Mutex
	gateway domain.OrderGateway
	sink    domain.EventSink
	live    map[string]*domain.WorkingOrder
	timeNow func() time.Time
}

func NewTradeManager(gateway domain.OrderGateway, sink domain.EventSink) (*TradeManager, error) {
	if gateway == nil {
		return nil, fmt.Errorf("trade manager: order gateway is required")
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &TradeManager{
		gateway: gateway,
		sink:    sink,
		live:    make(map[string]*domain.WorkingOrder),
		timeNow: time.Now,
	}, nil
}

// Submit forwards one order-creation request and records the assigned id as
// live. Requests that cannot possibly be accepted are rejected here, before
// touching the gateway.
func (t *TradeManager) Submit(ctx context.Context, req domain.OrderRequest) (string, error) {
	if req.Symbol == "" {
		return "", fmt.Errorf("submit: symbol is required")
	}
	if req.Side != domain.SideBuy && req.Side != domain.SideSell {
		return "", fmt.Errorf("submit: invalid side %q", req.Side)
	}
	if req.Quantity <= 0 {
		return "", fmt.Errorf("submit: quantity must be positive, got %d", req.Quantity)
	}

	orderID, err := t.gateway.PlaceOrder(ctx, req)
	if err != nil {
		return "", fmt.Errorf("submit %s %d %s: %w", req.Side, req.Quantity, req.Symbol, err)
	}

	now := t.timeNow()
	t.mu.Lock()
	t.live[orderID] = &domain.WorkingOrder{
		OrderID:   orderID,
		Request:   req,
		Status:    domain.OrderStatusPendingNew,
		Submitted: now,
	}
	t.mu.Unlock()

	t.sink.OrderSubmitted(domain.OrderSubmittedEvent{Time: now, OrderID: orderID, Request: req})
	return orderID, nil
}

// Cancel asks the gateway to pull an order. The order stays live until the
// Cancelled status callback arrives.
func (t *TradeManager) Cancel(ctx context.Context, orderID string) error {
	t.mu.Lock()
	_, ok := t.live[orderID]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("cancel: unknown order %s", orderID)
	}
	if err := t.gateway.CancelOrder(ctx, orderID); err != nil {
		return fmt.Errorf("cancel %s: %w", orderID, err)
	}
	return nil
}

// CancelAll pulls every live order, collecting the failures rather than
// stopping at the first one.
func (t *TradeManager) CancelAll(ctx context.Context) error {
	t.mu.Lock()
	ids := make([]string, 0, len(t.live))
	for id := range t.live {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	sort.Strings(ids)
	var err error
	for _, id := range ids {
		if cerr := t.gateway.CancelOrder(ctx, id); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("cancel %s: %w", id, cerr))
		}
	}
	return err
}

// OnOrderStatus advances a live order; terminal statuses release it.
// Unknown ids are ignored, the host is allowed to repeat itself.
func (t *TradeManager) OnOrderStatus(ev domain.OrderStatusEvent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.live[ev.OrderID]
	if !ok {
		return false
	}
	o.Status = ev.Status
	if ev.Status.IsTerminal() {
		delete(t.live, ev.OrderID)
	}
	return true
}

func (t *TradeManager) LiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

func (t *TradeManager) IsLive(orderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.live[orderID]
	return ok
}

// LiveOrders returns copies of the working orders, oldest submission first.
func (t *TradeManager) LiveOrders() []domain.WorkingOrder {
	t.mu.Lock()
	out := make([]domain.WorkingOrder, 0, len(t.live))
	for _, o := range t.live {
		out = append(out, *o)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Submitted.Equal(out[j].Submitted) {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].Submitted.Before(out[j].Submitted)
	})
	return out
}
