// Package paper implements a simulated venue that never leaves the process.
package paper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage-bot/business/execution/app"
	"github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/fd1az/perp-arbitrage-bot/internal/numeric"
)

var _ app.Venue = (*Executor)(nil)

// Config holds the market parameters the simulated position is kept in.
type Config struct {
	Market       string
	BaseDecimals int32
	BaseLotSize  int64
	// FillLatency delays every swap to mimic confirmation time.
	FillLatency time.Duration
}

// Fill is one simulated leg.
type Fill struct {
	Signature domain.Signature
	Kind      string // "perp" or "swap"
	Side      domain.PerpSide
	SizeLots  int64
	Swap      domain.SwapRequest
	At        time.Time
}

// Executor fills every perp order immediately and tracks the net position
// in base lots.
type Executor struct {
	cfg    Config
	logger logger.LoggerInterface
	now    func() time.Time

	mu       sync.Mutex
	position int64 // base lots
	hasPos   bool
	fills    []Fill
}

// New creates a paper executor.
func New(cfg Config, log logger.LoggerInterface) (*Executor, error) {
	if cfg.BaseDecimals <= 0 || cfg.BaseLotSize <= 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("paper executor needs base decimals and lot size"))
	}
	return &Executor{
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}, nil
}

// PlacePerpOrder implements app.Executor.
func (e *Executor) PlacePerpOrder(ctx context.Context, order domain.PerpOrder) (domain.Signature, error) {
	if order.Market != e.cfg.Market {
		return "", apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("paper executor trades "+e.cfg.Market+", got "+order.Market))
	}

	sig := newSignature()

	e.mu.Lock()
	e.position += order.BaseDelta()
	e.hasPos = true
	e.fills = append(e.fills, Fill{
		Signature: sig,
		Kind:      "perp",
		Side:      order.Side,
		SizeLots:  order.SizeLots,
		At:        e.now(),
	})
	pos := e.position
	e.mu.Unlock()

	e.logger.Info(ctx, "paper perp fill",
		"side", order.Side,
		"size_lots", order.SizeLots,
		"position_lots", pos,
		"signature", sig)
	return sig, nil
}

// Swap implements app.Executor.
func (e *Executor) Swap(ctx context.Context, req domain.SwapRequest) (domain.Signature, error) {
	if e.cfg.FillLatency > 0 {
		timer := time.NewTimer(e.cfg.FillLatency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	sig := newSignature()

	e.mu.Lock()
	e.fills = append(e.fills, Fill{
		Signature: sig,
		Kind:      "swap",
		Swap:      req,
		At:        e.now(),
	})
	e.mu.Unlock()

	e.logger.Info(ctx, "paper swap fill",
		"mode", req.Mode(),
		"amount", req.NativeAmount,
		"signature", sig)
	return sig, nil
}

// PositionBaseUI implements app.PositionReader.
func (e *Executor) PositionBaseUI(ctx context.Context) (decimal.Decimal, bool, error) {
	e.mu.Lock()
	lots, exists := e.position, e.hasPos
	e.mu.Unlock()

	if !exists {
		return decimal.Zero, false, nil
	}
	native := decimal.NewFromInt(lots).Mul(decimal.NewFromInt(e.cfg.BaseLotSize))
	return numeric.FromNative(e.cfg.BaseDecimals, native), true, nil
}

// Fills returns a copy of every simulated leg so far.
func (e *Executor) Fills() []Fill {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Fill, len(e.fills))
	copy(out, e.fills)
	return out
}

func newSignature() domain.Signature {
	return domain.Signature("paper-" + uuid.NewString())
}
