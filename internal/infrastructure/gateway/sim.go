package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// Compile-time interface check.
var _ domain.OrderGateway = (*SimGateway)(nil)

type simOrder struct {
	id        string
	req       domain.OrderRequest
	remaining int64
	acked     bool
}

// SimGateway fills orders against the price stream instead of a live broker.
// PlaceOrder only records the order; acknowledgements and fills are emitted
// by Tick, so a driver that alternates feed updates with Tick calls sees a
// deterministic sequence of callbacks.
type SimGateway struct {
	mu        sync.Mutex
	orders    map[string]*simOrder
	queue     []string
	splitFill bool
	logger    *zap.Logger

	onFill        func(domain.Fill)
	onOrderStatus func(domain.OrderStatusEvent)
}

// NewSimGateway creates a simulated gateway. With splitFill enabled, the
// first marketable tick fills half of an order and a later tick the rest,
// exercising the partial-fill path.
func NewSimGateway(splitFill bool, logger *zap.Logger) *SimGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimGateway{
		orders:    make(map[string]*simOrder),
		splitFill: splitFill,
		logger:    logger,
	}
}

// OnFill registers the fill callback. Register before the first Tick.
func (s *SimGateway) OnFill(fn func(domain.Fill)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFill = fn
}

// OnOrderStatus registers the order-status callback. Register before the
// first Tick.
func (s *SimGateway) OnOrderStatus(fn func(domain.OrderStatusEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOrderStatus = fn
}

func (s *SimGateway) PlaceOrder(_ context.Context, req domain.OrderRequest) (string, error) {
	if req.Quantity <= 0 {
		return "", fmt.Errorf("sim gateway: invalid quantity %d", req.Quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orderID := uuid.NewString()
	s.orders[orderID] = &simOrder{id: orderID, req: req, remaining: req.Quantity}
	s.queue = append(s.queue, orderID)

	s.logger.Debug("sim order placed",
		zap.String("order_id", orderID),
		zap.String("side", string(req.Side)),
		zap.Int64("quantity", req.Quantity),
		zap.Float64("limit", req.LimitPrice))
	return orderID, nil
}

func (s *SimGateway) CancelOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	if _, ok := s.orders[orderID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("sim gateway: order %s not found", orderID)
	}
	delete(s.orders, orderID)
	emit := s.onOrderStatus
	s.mu.Unlock()

	s.logger.Debug("sim order cancelled", zap.String("order_id", orderID))
	if emit != nil {
		emit(domain.OrderStatusEvent{OrderID: orderID, Status: domain.OrderStatusCancelled})
	}
	return nil
}

// Tick acknowledges newly placed orders and fills whatever is marketable at
// price. Callbacks run after the internal lock is released, in placement
// order: ack, then fill, then the resulting status.
func (s *SimGateway) Tick(price float64, t time.Time) {
	s.mu.Lock()

	var emits []func()
	onFill, onStatus := s.onFill, s.onOrderStatus
	status := func(ev domain.OrderStatusEvent) {
		if onStatus != nil {
			emits = append(emits, func() { onStatus(ev) })
		}
	}
	fill := func(f domain.Fill) {
		if onFill != nil {
			emits = append(emits, func() { onFill(f) })
		}
	}

	kept := s.queue[:0]
	for _, id := range s.queue {
		o, ok := s.orders[id]
		if !ok {
			continue
		}
		if !o.acked {
			o.acked = true
			status(domain.OrderStatusEvent{OrderID: id, Status: domain.OrderStatusNew})
		}
		if !marketable(o.req, price) {
			kept = append(kept, id)
			continue
		}

		qty := o.remaining
		if s.splitFill && o.remaining == o.req.Quantity && o.remaining > 1 {
			qty = o.remaining / 2
		}
		o.remaining -= qty
		fill(domain.Fill{OrderID: id, Side: o.req.Side, Quantity: qty, Price: price, Time: t})

		if o.remaining == 0 {
			delete(s.orders, id)
			status(domain.OrderStatusEvent{OrderID: id, Status: domain.OrderStatusFilled})
		} else {
			kept = append(kept, id)
			status(domain.OrderStatusEvent{OrderID: id, Status: domain.OrderStatusPartiallyFilled})
		}
	}
	s.queue = kept
	s.mu.Unlock()

	for _, emit := range emits {
		emit()
	}
}

// OpenOrders returns the number of orders still resting at the gateway.
func (s *SimGateway) OpenOrders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// marketable reports whether the order would trade at price. A zero limit
// means a market order.
func marketable(req domain.OrderRequest, price float64) bool {
	if req.LimitPrice == 0 {
		return true
	}
	if req.Side == domain.SideBuy {
		return price <= req.LimitPrice
	}
	return price >= req.LimitPrice
}
