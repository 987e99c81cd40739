package mango

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantKind   domain.BookMessageKind
		wantSide   domain.BookSide
		wantLevels int
		wantVer    uint64
	}{
		{
			name:       "checkpoint",
			data:       `{"market":"ESdn","bids":[[150.1,2.5],[150.0,1]],"asks":[[150.2,3]],"slot":100,"write_version":7}`,
			wantKind:   domain.BookCheckpoint,
			wantLevels: 3,
			wantVer:    7,
		},
		{
			name:       "empty_checkpoint",
			data:       `{"market":"ESdn","bids":[],"asks":[],"slot":1,"write_version":1}`,
			wantKind:   domain.BookCheckpoint,
			wantLevels: 0,
			wantVer:    1,
		},
		{
			name:       "bid_delta",
			data:       `{"market":"ESdn","side":"bid","update":[[150.15,0]],"slot":101,"write_version":8}`,
			wantKind:   domain.BookDelta,
			wantSide:   domain.BookSideBid,
			wantLevels: 1,
			wantVer:    8,
		},
		{
			name:       "ask_delta",
			data:       `{"market":"ESdn","side":"ask","update":[[150.3,1],[150.4,2]],"slot":102,"write_version":9}`,
			wantKind:   domain.BookDelta,
			wantSide:   domain.BookSideAsk,
			wantLevels: 2,
			wantVer:    9,
		},
		{
			name:     "subscription_ack",
			data:     `{"success":true,"message":"subscribed"}`,
			wantKind: domain.BookAck,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := decodeMessage([]byte(tt.data))
			if err != nil {
				t.Fatalf("decodeMessage() error = %v", err)
			}
			if msg.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", msg.Kind, tt.wantKind)
			}
			if msg.WriteVersion != tt.wantVer {
				t.Errorf("WriteVersion = %d, want %d", msg.WriteVersion, tt.wantVer)
			}
			levels := len(msg.Bids) + len(msg.Asks) + len(msg.Levels)
			if levels != tt.wantLevels {
				t.Errorf("levels = %d, want %d", levels, tt.wantLevels)
			}
			if tt.wantKind == domain.BookDelta && msg.Side != tt.wantSide {
				t.Errorf("Side = %s, want %s", msg.Side, tt.wantSide)
			}
		})
	}
}

func TestDecodeMessage_PreservesPrecision(t *testing.T) {
	msg, err := decodeMessage([]byte(`{"market":"m","side":"ask","update":[[23.456789012345678,0.000000001]],"slot":1,"write_version":2}`))
	if err != nil {
		t.Fatalf("decodeMessage() error = %v", err)
	}
	lvl := msg.Levels[0]
	if !lvl.Price.Equal(decimal.RequireFromString("23.456789012345678")) {
		t.Errorf("price = %s", lvl.Price)
	}
	if !lvl.Quantity.Equal(decimal.RequireFromString("0.000000001")) {
		t.Errorf("quantity = %s", lvl.Quantity)
	}
}

func TestDecodeMessage_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not_json", `hello`},
		{"unknown_shape", `{"market":"m","slot":1}`},
		{"bad_side", `{"side":"mid","update":[[1,1]],"write_version":1}`},
		{"short_level", `{"side":"bid","update":[[1]],"write_version":1}`},
		{"only_bids", `{"bids":[[1,1]],"write_version":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeMessage([]byte(tt.data)); err == nil {
				t.Error("decodeMessage() should fail")
			}
		})
	}

	if _, err := decodeMessage([]byte(`{"market":"m"}`)); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("error = %v, want ErrUnknownMessage", err)
	}
}
