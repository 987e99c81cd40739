// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"github.com/shopspring/decimal"

	execDomain "github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
	pricingDomain "github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
)

// Direction represents the arbitrage trade direction.
type Direction string

const (
	// BuyLowSellHigh buys base on the swap venue and sells it on the perp bid.
	BuyLowSellHigh Direction = "BUY_LOW_SELL_HIGH"

	// BuyHighSellLow buys base on the perp ask and sells it on the swap venue.
	BuyHighSellLow Direction = "BUY_HIGH_SELL_LOW"
)

// Directions lists every direction in evaluation order.
var Directions = []Direction{BuyLowSellHigh, BuyHighSellLow}

// DirectionParams binds a direction to the prices it compares and the
// legs it trades.
type DirectionParams struct {
	// QuoteSide is the swap quote feed the direction reads.
	QuoteSide pricingDomain.Side
	// BookSide is the opposing perp snapshot.
	BookSide pricingDomain.BookSide
	// PerpSide is the perp order the trade places.
	PerpSide execDomain.PerpSide
	// Requires is the position allowance the perp leg needs.
	Requires Requirement
	// SwapFirst is true when the swap leg must confirm before the perp leg.
	SwapFirst bool
}

var directionParams = map[Direction]DirectionParams{
	BuyLowSellHigh: {
		QuoteSide: pricingDomain.SideBuy,
		BookSide:  pricingDomain.BookSideBid,
		PerpSide:  execDomain.PerpAsk,
		Requires:  RequiresShort,
		SwapFirst: true,
	},
	BuyHighSellLow: {
		QuoteSide: pricingDomain.SideSell,
		BookSide:  pricingDomain.BookSideAsk,
		PerpSide:  execDomain.PerpBid,
		Requires:  RequiresLong,
		SwapFirst: false,
	},
}

// Params returns the direction's parameter row.
func (d Direction) Params() DirectionParams {
	return directionParams[d]
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	_, ok := directionParams[d]
	return ok
}

// Spread computes the direction's spread from the swap quote price and the
// opposing perp snapshot price, oriented so a positive result is profitable.
//
//	BuyLowSellHigh: (perpBid - swapBuy) / swapBuy
//	BuyHighSellLow: (swapSell - perpAsk) / perpAsk
func (d Direction) Spread(swapPrice, perpPrice decimal.Decimal) pricingDomain.Spread {
	if d == BuyHighSellLow {
		return pricingDomain.CalculateSpread(perpPrice, swapPrice)
	}
	return pricingDomain.CalculateSpread(swapPrice, perpPrice)
}

// String returns a human-readable description of the direction.
func (d Direction) String() string {
	switch d {
	case BuyLowSellHigh:
		return "Buy swap, sell perp"
	case BuyHighSellLow:
		return "Buy perp, sell swap"
	default:
		return "Unknown"
	}
}

// ShortString returns the compact label used in logs and the dashboard.
func (d Direction) ShortString() string {
	switch d {
	case BuyLowSellHigh:
		return "BLSH"
	case BuyHighSellLow:
		return "BHSL"
	default:
		return "?"
	}
}
