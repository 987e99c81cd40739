// Package domain contains the order types for the execution context.
package domain

import (
	"errors"
	"strconv"
)

var (
	ErrEmptyMarket     = errors.New("execution: market is required")
	ErrNonPositiveSize = errors.New("execution: order size must be positive")
	ErrEmptyMints      = errors.New("execution: input and output mints are required")
	ErrSameMint        = errors.New("execution: input and output mints must differ")
)

// PerpSide is the side of a perp order. A bid buys base, an ask sells it.
type PerpSide string

const (
	PerpBid PerpSide = "bid"
	PerpAsk PerpSide = "ask"
)

// OrderType is the perp order type. Only market orders are placed.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
)

// Signature identifies a submitted transaction.
type Signature string

// String implements fmt.Stringer.
func (s Signature) String() string {
	return string(s)
}

// PerpOrder is a market order against one perp market. Price is not sent;
// MaxQuoteLots caps how much quote the order may consume.
type PerpOrder struct {
	Market        string
	Side          PerpSide
	SizeLots      int64
	MaxQuoteLots  int64
	ClientOrderID uint64
	OrderType     OrderType
}

// Validate checks the fields the venue would reject.
func (o PerpOrder) Validate() error {
	if o.Market == "" {
		return ErrEmptyMarket
	}
	if o.SizeLots <= 0 || o.MaxQuoteLots <= 0 {
		return ErrNonPositiveSize
	}
	switch o.Side {
	case PerpBid, PerpAsk:
	default:
		return errors.New("execution: unknown perp side " + strconv.Quote(string(o.Side)))
	}
	return nil
}

// BaseDelta returns the signed change in base lots the order causes when filled.
func (o PerpOrder) BaseDelta() int64 {
	if o.Side == PerpAsk {
		return -o.SizeLots
	}
	return o.SizeLots
}

// SwapRequest is a single swap through the router. With ExactIn the amount is
// spent from InputMint; otherwise it is the amount of OutputMint received.
type SwapRequest struct {
	InputMint    string
	OutputMint   string
	NativeAmount uint64
	SlippageBps  int
	ExactIn      bool
}

// Validate checks the request shape.
func (r SwapRequest) Validate() error {
	if r.InputMint == "" || r.OutputMint == "" {
		return ErrEmptyMints
	}
	if r.InputMint == r.OutputMint {
		return ErrSameMint
	}
	if r.NativeAmount == 0 {
		return ErrNonPositiveSize
	}
	return nil
}

// Mode returns the router swap mode string.
func (r SwapRequest) Mode() string {
	if r.ExactIn {
		return "ExactIn"
	}
	return "ExactOut"
}
