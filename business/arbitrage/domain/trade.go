package domain

import (
	"time"

	"github.com/shopspring/decimal"

	execDomain "github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
)

// TradeStatus is the final state of a two-leg trade.
type TradeStatus string

const (
	// TradeCompleted means both legs were submitted.
	TradeCompleted TradeStatus = "completed"
	// TradeAborted means the first leg failed and the second was not attempted.
	TradeAborted TradeStatus = "aborted"
	// TradeDangling means one leg went through and the other did not.
	TradeDangling TradeStatus = "dangling"
)

// LegKind identifies the venue a leg trades on.
type LegKind string

const (
	LegSwap LegKind = "swap"
	LegPerp LegKind = "perp"
)

// LegResult is the outcome of a single leg.
type LegResult struct {
	Kind      LegKind              `json:"kind"`
	Side      string               `json:"side"`
	Signature execDomain.Signature `json:"signature,omitempty"`
	Error     string               `json:"error,omitempty"`
	Elapsed   time.Duration        `json:"elapsed"`
}

// OK reports whether the leg was accepted.
func (l LegResult) OK() bool {
	return l.Error == "" && l.Signature != ""
}

// Trade is one dispatched arbitrage attempt.
type Trade struct {
	ID         string          `json:"id"`
	Direction  Direction       `json:"direction"`
	Status     TradeStatus     `json:"status"`
	BaseQty    decimal.Decimal `json:"baseQty"`
	SwapPrice  decimal.Decimal `json:"swapPrice"`
	PerpPrice  decimal.Decimal `json:"perpPrice"`
	SpreadPct  decimal.Decimal `json:"spreadPct"`
	Legs       []LegResult     `json:"legs"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Error      string          `json:"error,omitempty"`
}

// NewTrade starts a trade record from the evaluation that triggered it.
func NewTrade(id string, eval *Evaluation, baseQty decimal.Decimal, at time.Time) *Trade {
	return &Trade{
		ID:        id,
		Direction: eval.Direction,
		BaseQty:   baseQty,
		SwapPrice: eval.SwapPrice,
		PerpPrice: eval.PerpPrice,
		SpreadPct: eval.Spread.Percent(),
		StartedAt: at,
	}
}

// Leg returns the result for kind, if that leg was attempted.
func (t *Trade) Leg(kind LegKind) (LegResult, bool) {
	for _, l := range t.Legs {
		if l.Kind == kind {
			return l, true
		}
	}
	return LegResult{}, false
}

// Finish sets the terminal status.
func (t *Trade) Finish(status TradeStatus, err error, at time.Time) {
	t.Status = status
	t.FinishedAt = at
	if err != nil {
		t.Error = err.Error()
	}
}
