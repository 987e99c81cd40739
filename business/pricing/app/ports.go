// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/asset"
)

// RouteRequest asks a swap router for candidate routes.
type RouteRequest struct {
	Input       *asset.Asset
	Output      *asset.Asset
	Amount      uint64 // native units of Input (exact-in) or Output (exact-out)
	SlippageBps int
	Mode        string // "ExactIn" or "ExactOut"
}

// QuoteSource defines the interface for swap routers.
type QuoteSource interface {
	// GetRoutes returns every candidate route for the request. An empty slice
	// is a valid answer meaning no liquidity.
	GetRoutes(ctx context.Context, req RouteRequest) ([]domain.Route, error)
}

// BookFeed is a subscribe-by-market order book message channel.
type BookFeed interface {
	// Connect opens the underlying connection.
	Connect(ctx context.Context) error

	// Subscribe sends the subscription request for market.
	Subscribe(ctx context.Context, market string) error

	// Messages delivers decoded messages in arrival order. The channel is
	// closed when the upstream connection ends for good.
	Messages() <-chan domain.BookMessage

	// Close releases the connection and closes Messages.
	Close() error
}

// SnapshotMirror receives every accepted snapshot change. Implementations
// must not block the stream for long; errors are logged and ignored.
type SnapshotMirror interface {
	Mirror(ctx context.Context, market string, side domain.BookSide, snap *domain.PriceSnapshot) error
}

// SnapshotReader is the read side of the best bid/ask store.
type SnapshotReader interface {
	ReadFresh(side domain.BookSide, maxAge time.Duration, now time.Time) (domain.PriceSnapshot, bool)
}

var _ SnapshotReader = (*domain.SnapshotStore)(nil)
