// Package domain contains the core domain types for the pricing context.
package domain

import (
	"errors"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/internal/asset"
	"github.com/shopspring/decimal"
)

// ErrNoRoutes is returned when a route set contains no usable route.
var ErrNoRoutes = errors.New("pricing: no usable routes")

// Side is the swap direction relative to the base asset.
type Side string

const (
	SideBuy  Side = "buy"  // quote in, base out
	SideSell Side = "sell" // base in, quote out
)

// Pair represents a trading pair using typed assets.
type Pair struct {
	Base  *asset.Asset // e.g., SOL
	Quote *asset.Asset // e.g., USDC
}

// NewPair creates a new trading pair.
func NewPair(base, quote *asset.Asset) Pair {
	if base == nil || quote == nil {
		panic("pricing: nil asset in pair")
	}
	return Pair{Base: base, Quote: quote}
}

// String returns the pair symbol (e.g., "SOL-USDC").
func (p Pair) String() string {
	return p.Base.Symbol() + "-" + p.Quote.Symbol()
}

// Input returns the asset paid into a swap on side s.
func (p Pair) Input(s Side) *asset.Asset {
	if s == SideBuy {
		return p.Quote
	}
	return p.Base
}

// Output returns the asset received from a swap on side s.
func (p Pair) Output(s Side) *asset.Asset {
	if s == SideBuy {
		return p.Base
	}
	return p.Quote
}

// Route is one candidate path returned by a swap router.
type Route struct {
	In  asset.Amount
	Out asset.Amount
}

// Price returns the route's rate in quote per base for side s.
func (r Route) Price(s Side, at time.Time) (asset.Price, error) {
	if s == SideBuy {
		return asset.PriceFromAmounts(r.In, r.Out, at)
	}
	return asset.PriceFromAmounts(r.Out, r.In, at)
}

// PriceQuote is the swap venue's price for one side at one moment.
// A quote is immutable and superseded by the next quote on the same feed.
type PriceQuote struct {
	Pair       Pair
	Side       Side
	Price      decimal.Decimal
	Route      Route
	ObservedAt time.Time
}

// Age returns how old the quote is relative to now.
func (q PriceQuote) Age(now time.Time) time.Duration {
	return now.Sub(q.ObservedAt)
}

// BestRoute selects the most favourable route for side s and returns it with
// its quote-per-base price.
//
// Buy maximises output per input (the lowest price); sell minimises input per
// output (the highest price). Routes with a zero leg are skipped. On an exact
// tie the earlier route wins.
func BestRoute(s Side, routes []Route, at time.Time) (Route, decimal.Decimal, error) {
	var (
		best      Route
		bestPrice decimal.Decimal
		found     bool
	)

	for _, r := range routes {
		if r.In.IsZero() || r.Out.IsZero() {
			continue
		}
		p, err := r.Price(s, at)
		if err != nil {
			continue
		}
		rate := p.Rate()

		better := !found
		if found {
			switch s {
			case SideBuy:
				better = rate.LessThan(bestPrice)
			default:
				better = rate.GreaterThan(bestPrice)
			}
		}
		if better {
			best, bestPrice, found = r, rate, true
		}
	}

	if !found {
		return Route{}, decimal.Zero, ErrNoRoutes
	}
	return best, bestPrice, nil
}
