package app

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

// PricingService owns the price sources: one quote feed per swap side and the
// perp order book stream.
type PricingService struct {
	buy    *QuoteFeed
	sell   *QuoteFeed
	stream *BookStream
	store  *domain.SnapshotStore
	logger logger.LoggerInterface
}

// NewPricingService creates a PricingService from its feeds.
func NewPricingService(buy, sell *QuoteFeed, stream *BookStream, store *domain.SnapshotStore, log logger.LoggerInterface) *PricingService {
	return &PricingService{
		buy:    buy,
		sell:   sell,
		stream: stream,
		store:  store,
		logger: log,
	}
}

// BuyFeed returns the quote feed for buying base on the swap venue.
func (s *PricingService) BuyFeed() *QuoteFeed { return s.buy }

// SellFeed returns the quote feed for selling base on the swap venue.
func (s *PricingService) SellFeed() *QuoteFeed { return s.sell }

// Stream returns the order book stream.
func (s *PricingService) Stream() *BookStream { return s.stream }

// Snapshots returns the best bid/ask store.
func (s *PricingService) Snapshots() *domain.SnapshotStore { return s.store }

// Run starts all feeds and blocks until ctx is cancelled or the book stream
// ends. Quote feeds never fail the group; a stream failure cancels the
// quote feeds and is returned.
func (s *PricingService) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(s.buy.Run)
	p.Go(s.sell.Run)
	p.Go(s.stream.Run)

	err := p.Wait()
	if err != nil {
		s.logger.Error(ctx, "pricing stopped", "error", err)
	}
	return err
}

// Freshness reports the age of the newest quote per side and of the last
// book message. A zero time means nothing has arrived yet.
type Freshness struct {
	BuyQuote  time.Time
	SellQuote time.Time
	Book      time.Time
}

// Freshness returns the arrival times of the newest data on every feed.
func (s *PricingService) Freshness() Freshness {
	return Freshness{
		BuyQuote:  s.buy.LastSuccess(),
		SellQuote: s.sell.LastSuccess(),
		Book:      s.stream.LastMessageAt(),
	}
}
