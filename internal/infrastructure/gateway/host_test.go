package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitos/signal_level_engine/internal/domain"
)

func TestHostGatewayPlaceOrder(t *testing.T) {
	var received domain.OrderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"order_id": "host-42"})
	}))
	defer server.Close()

	g := NewHostGateway(server.URL+"/", nil)
	id, err := g.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol: "ES", Side: domain.SideBuy, Quantity: 10,
		Type: domain.OrderTypeEntry, LevelID: 3, ExitIndex: -1,
	})
	require.NoError(t, err)
	require.Equal(t, "host-42", id)
	require.Equal(t, "ES", received.Symbol)
	require.Equal(t, int64(10), received.Quantity)
	require.Equal(t, int64(3), received.LevelID)
}

func TestHostGatewayPlaceOrderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "risk limit exceeded", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	g := NewHostGateway(server.URL, nil)
	_, err := g.PlaceOrder(context.Background(), domain.OrderRequest{Symbol: "ES", Side: domain.SideBuy, Quantity: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "risk limit exceeded")
}

func TestHostGatewayPlaceOrderMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	g := NewHostGateway(server.URL, nil)
	_, err := g.PlaceOrder(context.Background(), domain.OrderRequest{Symbol: "ES", Side: domain.SideBuy, Quantity: 1})
	require.Error(t, err)
}

func TestHostGatewayCancelOrder(t *testing.T) {
	var path, method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		if r.URL.Path == "/orders/gone" {
			http.Error(w, "unknown order", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	g := NewHostGateway(server.URL, nil)
	require.NoError(t, g.CancelOrder(context.Background(), "host-42"))
	require.Equal(t, http.MethodDelete, method)
	require.Equal(t, "/orders/host-42", path)

	err := g.CancelOrder(context.Background(), "gone")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown order")
}
