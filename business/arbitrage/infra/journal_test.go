package infra

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
)

func TestJournal_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, status := range []domain.TradeStatus{domain.TradeCompleted, domain.TradeDangling} {
		j, err := OpenJournal(path)
		if err != nil {
			t.Fatalf("OpenJournal() error = %v", err)
		}
		trade := &domain.Trade{
			ID:        string(rune('a' + i)),
			Direction: domain.BuyLowSellHigh,
			Status:    status,
			BaseQty:   decimal.RequireFromString("0.1"),
			StartedAt: at,
			Legs:      []domain.LegResult{{Kind: domain.LegSwap, Side: "buy", Signature: "sig"}},
		}
		if err := j.Record(context.Background(), trade); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if err := j.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []domain.Trade
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var tr domain.Trade
		if err := json.Unmarshal(sc.Bytes(), &tr); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, tr)
	}

	if len(got) != 2 {
		t.Fatalf("lines = %d, want 2", len(got))
	}
	if got[1].Status != domain.TradeDangling || got[1].Direction != domain.BuyLowSellHigh {
		t.Errorf("second entry = %+v", got[1])
	}
	if !got[0].BaseQty.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("baseQty = %s, want 0.1", got[0].BaseQty)
	}
}

func TestOpenJournal_BadPath(t *testing.T) {
	_, err := OpenJournal(filepath.Join(t.TempDir(), "missing", "trades.jsonl"))
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want not-exist cause", err)
	}
}
