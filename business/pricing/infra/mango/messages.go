package mango

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
)

// ErrUnknownMessage is returned for frames that are neither a checkpoint, a
// delta nor a subscription answer.
var ErrUnknownMessage = errors.New("mango: unrecognised order book message")

// subscribeRequest is sent once per market.
type subscribeRequest struct {
	Command  string `json:"command"`
	MarketID string `json:"marketId"`
}

func newSubscribeRequest(market string) subscribeRequest {
	return subscribeRequest{Command: "subscribe", MarketID: market}
}

// wireLevel is [price, quantity].
type wireLevel []json.Number

// wireMessage is a superset of every frame the order book service sends.
// Checkpoints carry bids and asks, deltas carry update and side, answers to
// commands carry success.
type wireMessage struct {
	Market       string      `json:"market"`
	Slot         uint64      `json:"slot"`
	WriteVersion uint64      `json:"write_version"`
	Bids         []wireLevel `json:"bids"`
	Asks         []wireLevel `json:"asks"`
	Update       []wireLevel `json:"update"`
	Side         string      `json:"side"`

	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// decodeMessage parses one frame. Checkpoints are recognised by having both
// bids and asks, deltas by having update.
func decodeMessage(data []byte) (domain.BookMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.BookMessage{}, fmt.Errorf("mango: decode frame: %w", err)
	}

	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.BookMessage{}, fmt.Errorf("mango: decode frame: %w", err)
	}

	_, hasBids := raw["bids"]
	_, hasAsks := raw["asks"]
	_, hasUpdate := raw["update"]

	switch {
	case hasBids && hasAsks:
		bids, err := toLevels(w.Bids)
		if err != nil {
			return domain.BookMessage{}, err
		}
		asks, err := toLevels(w.Asks)
		if err != nil {
			return domain.BookMessage{}, err
		}
		return domain.BookMessage{
			Kind:         domain.BookCheckpoint,
			Market:       w.Market,
			Slot:         w.Slot,
			WriteVersion: w.WriteVersion,
			Bids:         bids,
			Asks:         asks,
		}, nil

	case hasUpdate:
		side, err := toSide(w.Side)
		if err != nil {
			return domain.BookMessage{}, err
		}
		levels, err := toLevels(w.Update)
		if err != nil {
			return domain.BookMessage{}, err
		}
		return domain.BookMessage{
			Kind:         domain.BookDelta,
			Market:       w.Market,
			Slot:         w.Slot,
			WriteVersion: w.WriteVersion,
			Side:         side,
			Levels:       levels,
		}, nil

	case w.Success != nil:
		return domain.BookMessage{
			Kind:     domain.BookAck,
			Accepted: *w.Success,
			Reason:   w.Message,
		}, nil
	}

	return domain.BookMessage{}, ErrUnknownMessage
}

func toSide(s string) (domain.BookSide, error) {
	switch s {
	case "bid":
		return domain.BookSideBid, nil
	case "ask":
		return domain.BookSideAsk, nil
	default:
		return "", fmt.Errorf("mango: unknown side %q", s)
	}
}

func toLevels(in []wireLevel) ([]domain.Level, error) {
	out := make([]domain.Level, 0, len(in))
	for _, l := range in {
		if len(l) != 2 {
			return nil, fmt.Errorf("mango: level has %d fields, want 2", len(l))
		}
		price, err := decimal.NewFromString(l[0].String())
		if err != nil {
			return nil, fmt.Errorf("mango: level price %q: %w", l[0], err)
		}
		qty, err := decimal.NewFromString(l[1].String())
		if err != nil {
			return nil, fmt.Errorf("mango: level quantity %q: %w", l[1], err)
		}
		out = append(out, domain.Level{Price: price, Quantity: qty})
	}
	return out, nil
}
