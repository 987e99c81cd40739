package asset

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrZeroBaseAmount is returned when a price would divide by a zero base amount.
var ErrZeroBaseAmount = errors.New("asset: zero base amount")

// Price represents an exchange rate: units of quote per one unit of base.
type Price struct {
	rate      decimal.Decimal
	base      *Asset
	quote     *Asset
	timestamp time.Time
}

// NewPrice creates a new price from a decimal rate.
func NewPrice(base, quote *Asset, rate decimal.Decimal, timestamp time.Time) Price {
	if base == nil || quote == nil {
		panic("asset: nil base or quote in price")
	}
	if rate.IsNegative() {
		panic("asset: negative price rate")
	}

	return Price{
		rate:      rate,
		base:      base,
		quote:     quote,
		timestamp: timestamp,
	}
}

// PriceFromAmounts derives the rate quote/base from two native amounts,
// normalising for the mints' decimals.
func PriceFromAmounts(quoteAmt, baseAmt Amount, timestamp time.Time) (Price, error) {
	if quoteAmt.Asset() == nil || baseAmt.Asset() == nil {
		return Price{}, ErrNilAsset
	}
	if baseAmt.IsZero() {
		return Price{}, ErrZeroBaseAmount
	}
	rate := quoteAmt.ToDecimal().DivRound(baseAmt.ToDecimal(), 18)
	return NewPrice(baseAmt.Asset(), quoteAmt.Asset(), rate, timestamp), nil
}

// Rate returns the price rate.
func (p Price) Rate() decimal.Decimal {
	return p.rate
}

// Base returns the base asset.
func (p Price) Base() *Asset {
	return p.base
}

// Quote returns the quote asset.
func (p Price) Quote() *Asset {
	return p.quote
}

// Timestamp returns when this price was observed.
func (p Price) Timestamp() time.Time {
	return p.timestamp
}

// Pair returns the trading pair symbol (e.g., "SOL/USDC").
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return fmt.Sprintf("%s/%s", p.base.Symbol(), p.quote.Symbol())
}

// IsZero returns true if the price is zero.
func (p Price) IsZero() bool {
	return p.rate.IsZero()
}

// String returns a human-readable representation.
func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.rate.String(), p.Pair())
}

// Age returns how old this price is.
func (p Price) Age() time.Duration {
	return time.Since(p.timestamp)
}

// IsStale returns true if the price is older than the given duration.
func (p Price) IsStale(maxAge time.Duration) bool {
	return p.Age() > maxAge
}
