package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// envelope is the host's wire format. Exactly one payload field is set,
// selected by Type.
type envelope struct {
	Type        string                   `json:"type"`
	Bar         *barMessage              `json:"bar,omitempty"`
	Fill        *domain.Fill             `json:"fill,omitempty"`
	OrderStatus *domain.OrderStatusEvent `json:"order_status,omitempty"`
}

type barMessage struct {
	domain.Bar
	Signal float64 `json:"signal"`
}

// HostFeed consumes the host's websocket stream of bars, fills and order
// status updates. Run reconnects with backoff until the context is
// cancelled.
type HostFeed struct {
	url    string
	symbol string
	logger *zap.Logger

	mu              sync.Mutex
	conn            *websocket.Conn
	barCallbacks    []func(domain.Bar, float64)
	fillCallbacks   []func(domain.Fill)
	statusCallbacks []func(domain.OrderStatusEvent)
}

func NewHostFeed(url, symbol string, logger *zap.Logger) *HostFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostFeed{url: url, symbol: symbol, logger: logger}
}

func (f *HostFeed) OnBar(callback func(bar domain.Bar, signal float64)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barCallbacks = append(f.barCallbacks, callback)
}

func (f *HostFeed) OnFill(callback func(fill domain.Fill)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fillCallbacks = append(f.fillCallbacks, callback)
}

func (f *HostFeed) OnOrderStatus(callback func(ev domain.OrderStatusEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCallbacks = append(f.statusCallbacks, callback)
}

// Run connects to the host and dispatches messages until ctx is cancelled.
// Connection drops are retried with doubling backoff, capped at 30s.
func (f *HostFeed) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("feed disconnected, reconnecting",
			zap.String("url", f.url),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (f *HostFeed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		conn.Close()
		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()
	}()

	if err := f.subscribe(conn); err != nil {
		return err
	}
	f.logger.Info("feed connected", zap.String("url", f.url), zap.String("symbol", f.symbol))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.dispatch(message)
	}
}

func (f *HostFeed) subscribe(conn *websocket.Conn) error {
	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": []string{"bars." + f.symbol, "executions." + f.symbol},
	}
	return conn.WriteJSON(subMsg)
}

func (f *HostFeed) dispatch(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		f.logger.Warn("feed unmarshal error", zap.Error(err))
		return
	}

	switch env.Type {
	case "bar":
		if env.Bar == nil {
			return
		}
		f.mu.Lock()
		callbacks := make([]func(domain.Bar, float64), len(f.barCallbacks))
		copy(callbacks, f.barCallbacks)
		f.mu.Unlock()
		for _, cb := range callbacks {
			cb(env.Bar.Bar, env.Bar.Signal)
		}
	case "fill":
		if env.Fill == nil {
			return
		}
		f.mu.Lock()
		callbacks := make([]func(domain.Fill), len(f.fillCallbacks))
		copy(callbacks, f.fillCallbacks)
		f.mu.Unlock()
		for _, cb := range callbacks {
			cb(*env.Fill)
		}
	case "order_status":
		if env.OrderStatus == nil {
			return
		}
		f.mu.Lock()
		callbacks := make([]func(domain.OrderStatusEvent), len(f.statusCallbacks))
		copy(callbacks, f.statusCallbacks)
		f.mu.Unlock()
		for _, cb := range callbacks {
			cb(*env.OrderStatus)
		}
	default:
		// Subscription acks and heartbeats carry no type we act on.
	}
}
