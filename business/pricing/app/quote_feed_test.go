package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/asset"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/shopspring/decimal"
)

var pair = domain.NewPair(asset.SOL, asset.USDC)

func newTestFeed(t *testing.T, side domain.Side, src QuoteSource) *QuoteFeed {
	t.Helper()
	f, err := NewQuoteFeed(QuoteFeedConfig{
		Pair:         pair,
		Side:         side,
		Amount:       100_000,
		SlippageBps:  5,
		PollInterval: 10 * time.Millisecond,
		Timeout:      50 * time.Millisecond,
	}, src, logger.Nop{})
	if err != nil {
		t.Fatalf("NewQuoteFeed() error = %v", err)
	}
	return f
}

func buyRoute(in, out uint64) domain.Route {
	return domain.Route{
		In:  asset.NewAmountFromUint64(asset.USDC, in),
		Out: asset.NewAmountFromUint64(asset.SOL, out),
	}
}

func TestQuoteFeed_Poll(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		src       *fakeQuoteSource
		wantPrice string
		wantErr   apperror.Code
	}{
		{
			name:      "best_of_two_routes",
			src:       &fakeQuoteSource{routes: []domain.Route{buyRoute(150_000_000, 900_000_000), buyRoute(150_000_000, 1_000_000_000)}},
			wantPrice: "150",
		},
		{
			name:    "collaborator_error",
			src:     &fakeQuoteSource{err: errors.New("502 bad gateway")},
			wantErr: apperror.CodeQuoteUnavailable,
		},
		{
			name:    "empty_route_list",
			src:     &fakeQuoteSource{routes: []domain.Route{}},
			wantErr: apperror.CodeQuoteUnavailable,
		},
		{
			name:    "timeout",
			src:     &fakeQuoteSource{block: true},
			wantErr: apperror.CodeQuoteUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFeed(t, domain.SideBuy, tt.src)
			f.now = func() time.Time { return fixed }

			q, err := f.Poll(context.Background())
			if tt.wantErr != "" {
				if !apperror.IsCode(err, tt.wantErr) {
					t.Fatalf("Poll() error = %v, want code %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Poll() error = %v", err)
			}
			if !q.Price.Equal(decimal.RequireFromString(tt.wantPrice)) {
				t.Errorf("price = %s, want %s", q.Price, tt.wantPrice)
			}
			if !q.ObservedAt.Equal(fixed) {
				t.Errorf("ObservedAt = %v, want %v", q.ObservedAt, fixed)
			}
		})
	}
}

func TestQuoteFeed_PollBuildsRequest(t *testing.T) {
	src := &fakeQuoteSource{routes: []domain.Route{{
		In:  asset.NewAmountFromUint64(asset.SOL, 100_000),
		Out: asset.NewAmountFromUint64(asset.USDC, 15),
	}}}
	f := newTestFeed(t, domain.SideSell, src)

	if _, err := f.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	req := src.reqs[0]
	if !req.Input.Equals(asset.SOL) || !req.Output.Equals(asset.USDC) {
		t.Errorf("sell request should be SOL -> USDC, got %s -> %s", req.Input, req.Output)
	}
	if req.Amount != 100_000 || req.SlippageBps != 5 || req.Mode != "ExactIn" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestQuoteFeed_RunPublishesAndSkipsFailures(t *testing.T) {
	src := &fakeQuoteSource{err: errors.New("down")}
	f := newTestFeed(t, domain.SideBuy, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	if _, ok := f.Mailbox().DrainLatest(); ok {
		t.Fatal("nothing should be published while the source fails")
	}

	src.mu.Lock()
	src.err = nil
	src.routes = []domain.Route{buyRoute(150_000_000, 1_000_000_000)}
	src.mu.Unlock()

	deadline := time.After(time.Second)
	for {
		if q, ok := f.Mailbox().DrainLatest(); ok {
			if !q.Price.Equal(decimal.NewFromInt(150)) {
				t.Errorf("price = %s, want 150", q.Price)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("no quote published after source recovered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if f.LastSuccess().IsZero() {
		t.Error("LastSuccess should be set after a publish")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v, want nil on cancel", err)
	}
}

func TestNewQuoteFeed_Validation(t *testing.T) {
	if _, err := NewQuoteFeed(QuoteFeedConfig{Pair: pair, Side: domain.SideBuy, Amount: 1}, &fakeQuoteSource{}, logger.Nop{}); err == nil {
		t.Error("zero poll interval should be rejected")
	}
	if _, err := NewQuoteFeed(QuoteFeedConfig{Pair: pair, Side: domain.SideBuy, PollInterval: time.Second}, &fakeQuoteSource{}, logger.Nop{}); err == nil {
		t.Error("zero amount should be rejected")
	}
}

func TestQuoteFeed_RunWaitsForStartupDelay(t *testing.T) {
	src := &fakeQuoteSource{routes: []domain.Route{buyRoute(150_000_000, 1_000_000_000)}}
	f := newTestFeed(t, domain.SideBuy, src)
	f.cfg.StartupDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v, want nil on cancel", err)
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.reqs) != 0 {
		t.Errorf("polls during startup delay = %d, want 0", len(src.reqs))
	}
}
