package domain

import "github.com/shopspring/decimal"

// Spread is the relative edge of buying at one price and selling at another.
// Positive means profitable before costs.
type Spread struct {
	BuyPrice    decimal.Decimal
	SellPrice   decimal.Decimal
	Absolute    decimal.Decimal // Sell - Buy
	Relative    decimal.Decimal // (Sell - Buy) / Buy
	BasisPoints decimal.Decimal // Relative * 10000
}

// CalculateSpread computes the spread of buying at buyPrice and selling at
// sellPrice. A non-positive buy price yields a zero spread.
func CalculateSpread(buyPrice, sellPrice decimal.Decimal) Spread {
	absolute := sellPrice.Sub(buyPrice)
	relative := decimal.Zero
	if buyPrice.IsPositive() {
		relative = absolute.DivRound(buyPrice, 18)
	}

	return Spread{
		BuyPrice:    buyPrice,
		SellPrice:   sellPrice,
		Absolute:    absolute,
		Relative:    relative,
		BasisPoints: relative.Mul(decimal.NewFromInt(10000)),
	}
}

// IsProfitable reports whether the relative spread strictly exceeds threshold.
func (s Spread) IsProfitable(threshold decimal.Decimal) bool {
	return s.Relative.GreaterThan(threshold)
}

// Percent returns the relative spread in percent.
func (s Spread) Percent() decimal.Decimal {
	return s.Relative.Mul(decimal.NewFromInt(100))
}
