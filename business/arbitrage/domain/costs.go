package domain

import (
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
)

// ProfitEstimate is the expected outcome of trading the configured base
// quantity across a spread, in quote units. Router fees are quoted at zero and
// perp taker fees are not modelled, so this is an upper bound.
type ProfitEstimate struct {
	BaseQty  decimal.Decimal
	Notional decimal.Decimal // buy leg cost
	Gross    decimal.Decimal // (sell - buy) * qty
	Percent  decimal.Decimal // relative spread in percent
}

// EstimateProfit prices baseQty across spread.
func EstimateProfit(spread pricingDomain.Spread, baseQty decimal.Decimal) ProfitEstimate {
	return ProfitEstimate{
		BaseQty:  baseQty,
		Notional: spread.BuyPrice.Mul(baseQty),
		Gross:    spread.Absolute.Mul(baseQty),
		Percent:  spread.Percent(),
	}
}

// IsPositive reports whether the estimate makes money before fees.
func (p ProfitEstimate) IsPositive() bool {
	return p.Gross.IsPositive()
}
