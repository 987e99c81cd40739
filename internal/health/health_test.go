package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

func TestServer_Endpoints(t *testing.T) {
	fresh := time.Now()
	var lastNanos atomic.Int64
	last := func() time.Time {
		if n := lastNanos.Load(); n != 0 {
			return time.Unix(0, n)
		}
		return time.Time{}
	}

	s := NewServer(0, "test", logger.Nop{})
	s.RegisterCheck("orderbook", FreshnessCheck(func() time.Time { return fresh }, time.Minute))
	s.RegisterCheck("router", FreshnessCheck(last, time.Minute))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/ready before router data = %d, want 503", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if status.Status != "degraded" || status.Checks["router"].Healthy || !status.Checks["orderbook"].Healthy {
		t.Errorf("status = %+v", status)
	}

	lastNanos.Store(time.Now().UnixNano())
	resp, err = http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/ready with fresh feeds = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/live")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/live = %d, want 200", resp.StatusCode)
	}
}

func TestFreshnessCheck_Stale(t *testing.T) {
	check := FreshnessCheck(func() time.Time { return time.Now().Add(-time.Hour) }, time.Second)
	if ok, msg := check(context.Background()); ok || msg == "" {
		t.Errorf("check = %v %q, want stale", ok, msg)
	}
}
