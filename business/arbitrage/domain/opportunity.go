package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
)

// Decision is the outcome of one evaluation tick.
type Decision string

const (
	DecisionPositionUnknown Decision = "position_unknown"
	DecisionNotAllowed      Decision = "not_allowed"
	DecisionNoQuote         Decision = "no_quote"
	DecisionNoBook          Decision = "no_book"
	DecisionBelowThreshold  Decision = "below_threshold"
	DecisionCooldown        Decision = "cooldown"
	DecisionDryRun          Decision = "dry_run"
	DecisionTrade           Decision = "trade"
)

// Priced reports whether the decision was reached after both prices were known.
func (d Decision) Priced() bool {
	switch d {
	case DecisionBelowThreshold, DecisionCooldown, DecisionDryRun, DecisionTrade:
		return true
	}
	return false
}

// Evaluation records one directional tick.
type Evaluation struct {
	Direction Direction
	At        time.Time
	Allowance Allowance
	Decision  Decision

	// Set once both prices are known.
	SwapPrice   decimal.Decimal
	PerpPrice   decimal.Decimal
	BookVersion uint64
	QuoteAge    time.Duration
	Spread      pricingDomain.Spread
	Threshold   decimal.Decimal
	Profit      ProfitEstimate
}

// IsProfitable reports whether the spread strictly exceeds the threshold.
func (e *Evaluation) IsProfitable() bool {
	return e.Decision.Priced() && e.Spread.IsProfitable(e.Threshold)
}

// Marker is "*" for a profitable spread and "." otherwise.
func (e *Evaluation) Marker() string {
	if e.IsProfitable() {
		return "*"
	}
	return "."
}

// Summary renders the one-line evaluation log message.
func (e *Evaluation) Summary() string {
	p := e.Direction.Params()
	if !e.Decision.Priced() {
		return fmt.Sprintf("%s %s skipped: %s", e.Marker(), e.Direction.ShortString(), e.Decision)
	}
	return fmt.Sprintf("%s %s swap_%s=%s perp_%s=%s spread=%s%% expected=%s %s",
		e.Marker(),
		e.Direction.ShortString(),
		p.QuoteSide, e.SwapPrice.StringFixed(4),
		p.BookSide, e.PerpPrice.StringFixed(4),
		e.Profit.Percent.StringFixed(4),
		e.Profit.Gross.StringFixed(6),
		e.Decision,
	)
}
