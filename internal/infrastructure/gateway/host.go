package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// Compile-time interface check.
var _ domain.OrderGateway = (*HostGateway)(nil)

// HostGateway submits orders to the host runtime's REST endpoint. Fills and
// order status updates come back over the host feed, not through this
// client.
type HostGateway struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHostGateway(baseURL string, logger *zap.Logger) *HostGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (g *HostGateway) PlaceOrder(ctx context.Context, req domain.OrderRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("host order error: %s", string(respBody))
	}

	var result struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("host order response: %w", err)
	}
	if result.OrderID == "" {
		return "", fmt.Errorf("host order response missing order_id")
	}

	g.logger.Debug("host order placed",
		zap.String("order_id", result.OrderID),
		zap.String("side", string(req.Side)),
		zap.Int64("quantity", req.Quantity))
	return result.OrderID, nil
}

func (g *HostGateway) CancelOrder(ctx context.Context, orderID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.baseURL+"/orders/"+orderID, nil)
	if err != nil {
		return err
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("host cancel error: %s", string(respBody))
	}

	g.logger.Debug("host order cancelled", zap.String("order_id", orderID))
	return nil
}
