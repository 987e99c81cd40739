// Package app contains application services and port definitions for the execution context.
package app

import (
	"context"

	"github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
	"github.com/shopspring/decimal"
)

// Executor submits trade legs.
type Executor interface {
	// PlacePerpOrder submits a perp order and returns once it is dispatched.
	// It does not wait for the fill.
	PlacePerpOrder(ctx context.Context, order domain.PerpOrder) (domain.Signature, error)

	// Swap executes a swap and returns once it is confirmed.
	Swap(ctx context.Context, req domain.SwapRequest) (domain.Signature, error)
}

// PositionReader reads the account's net perp position.
type PositionReader interface {
	// PositionBaseUI returns the signed base position in UI units. exists is
	// false when the account has no position on the market.
	PositionBaseUI(ctx context.Context) (base decimal.Decimal, exists bool, err error)
}

// Venue is an executor that can also report the position it trades.
type Venue interface {
	Executor
	PositionReader
}
