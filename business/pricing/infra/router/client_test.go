package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/asset"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url, Wallet: "wallet111"}, logger.Nop{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

var buyReq = app.RouteRequest{
	Input:       asset.USDC,
	Output:      asset.SOL,
	Amount:      100000,
	SlippageBps: 5,
	Mode:        "ExactIn",
}

func TestClient_GetRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap" {
			t.Errorf("path = %q, want /swap", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{
			"inputMint":            asset.MintUSDC,
			"outputMint":           asset.MintWrappedSOL,
			"amount":               "100000",
			"slippage":             "5",
			"feeBps":               "0",
			"mode":                 "ExactIn",
			"wallet":               "wallet111",
			"otherAmountThreshold": "0",
		}
		for k, v := range want {
			if got := q.Get(k); got != v {
				t.Errorf("query %s = %q, want %q", k, got, v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"inAmount":"100000","outAmount":"666666"},{"inAmount":"100000","outAmount":"650000","label":"Orca"}]`))
	}))
	defer server.Close()

	routes, err := newTestClient(t, server.URL).GetRoutes(context.Background(), buyReq)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("len(routes) = %d, want 2", len(routes))
	}
	if got := routes[0].Out.ToDecimal().String(); got != "0.000666666" {
		t.Errorf("routes[0].Out = %s, want 0.000666666", got)
	}
	if !routes[0].In.Asset().Equals(asset.USDC) || !routes[0].Out.Asset().Equals(asset.SOL) {
		t.Error("route amounts should carry request assets")
	}
}

func TestClient_GetRoutesSkipsUnparsable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"inAmount":"abc","outAmount":"1"},{"inAmount":"10","outAmount":"20"}]`))
	}))
	defer server.Close()

	routes, err := newTestClient(t, server.URL).GetRoutes(context.Background(), buyReq)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 1 {
		t.Errorf("len(routes) = %d, want 1", len(routes))
	}
}

func TestClient_GetRoutesEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	routes, err := newTestClient(t, server.URL).GetRoutes(context.Background(), buyReq)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("len(routes) = %d, want 0", len(routes))
	}
}

func TestClient_GetRoutesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Could not find any route"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).GetRoutes(context.Background(), buyReq)
	if !apperror.IsCode(err, apperror.CodeRouterAPIError) {
		t.Fatalf("GetRoutes() error = %v, want ROUTER_API_ERROR", err)
	}
}

func TestClient_CircuitOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	var err error
	for i := 0; i < 6; i++ {
		_, err = c.GetRoutes(context.Background(), buyReq)
	}

	if !apperror.IsCode(err, apperror.CodeCircuitOpen) {
		t.Fatalf("GetRoutes() error = %v, want CIRCUIT_OPEN", err)
	}
	if hits.Load() != 5 {
		t.Errorf("server hits = %d, want 5 before the breaker opened", hits.Load())
	}
}

func TestNewClient_RequiresURL(t *testing.T) {
	if _, err := NewClient(Config{}, logger.Nop{}); err == nil {
		t.Error("NewClient() without base url should fail")
	}
}
