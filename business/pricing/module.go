// Package pricing implements the pricing bounded context: swap quotes and the
// perp order book.
package pricing

import (
	"context"
	"fmt"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/app"
	pricingDI "github.com/fd1az/perp-arbitrage-bot/business/pricing/di"
	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/business/pricing/infra/mango"
	redisinfra "github.com/fd1az/perp-arbitrage-bot/business/pricing/infra/redis"
	"github.com/fd1az/perp-arbitrage-bot/business/pricing/infra/router"
	"github.com/fd1az/perp-arbitrage-bot/internal/asset"
	"github.com/fd1az/perp-arbitrage-bot/internal/config"
	"github.com/fd1az/perp-arbitrage-bot/internal/di"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/fd1az/perp-arbitrage-bot/internal/monolith"
	"github.com/fd1az/perp-arbitrage-bot/internal/numeric"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register QuoteSource (swap router) - private dependency
	di.RegisterToken(c, pricingDI.QuoteSource, func(sr di.ServiceRegistry) app.QuoteSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := router.NewClient(router.Config{
			BaseURL:           cfg.Router.URL,
			Wallet:            cfg.Router.Wallet,
			Timeout:           cfg.Router.Timeout,
			RequestsPerMinute: cfg.Router.RequestsPerMinute,
		}, log)
		if err != nil {
			panic("failed to create router client: " + err.Error())
		}
		return client
	})

	// Register BookFeed (order book websocket) - private dependency
	di.RegisterToken(c, pricingDI.BookFeed, func(sr di.ServiceRegistry) app.BookFeed {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		feedCfg := mango.DefaultConfig()
		feedCfg.URL = cfg.Feed.WebSocketURL
		feedCfg.MaxMessageSize = cfg.Feed.MaxMessageSize
		feedCfg.PingInterval = cfg.Feed.PingInterval
		feedCfg.Reconnect = cfg.Feed.Reconnect
		feedCfg.MaxReconnects = cfg.Feed.MaxReconnects

		feed, err := mango.NewFeed(feedCfg, log)
		if err != nil {
			panic("failed to create order book feed: " + err.Error())
		}
		return feed
	})

	// Register PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		svc, err := newPricingService(cfg, registry, pricingDI.GetQuoteSource(sr), pricingDI.GetBookFeed(sr), log)
		if err != nil {
			panic("failed to create pricing service: " + err.Error())
		}
		return svc
	})

	return nil
}

func newPricingService(cfg *config.Config, registry *asset.Registry, source app.QuoteSource, feed app.BookFeed, log logger.LoggerInterface) (*app.PricingService, error) {
	base, ok := registry.GetByMint(cfg.Market.BaseMint)
	if !ok {
		return nil, fmt.Errorf("base mint %s not registered", cfg.Market.BaseMint)
	}
	quote, ok := registry.GetByMint(cfg.Market.QuoteMint)
	if !ok {
		return nil, fmt.Errorf("quote mint %s not registered", cfg.Market.QuoteMint)
	}
	pair := domain.NewPair(base, quote)

	if _, err := asset.ParseDecimal(base, cfg.Arbitrage.BaseQtyDecimal()); err != nil {
		return nil, fmt.Errorf("base qty %s for %s: %w", cfg.Arbitrage.BaseQty, base.Symbol(), err)
	}

	// The sell side quotes the same base size the sequencer trades.
	sellAmount, err := numeric.ToNativeAmount(cfg.Market.BaseDecimals, cfg.Arbitrage.BaseQtyDecimal())
	if err != nil {
		return nil, fmt.Errorf("sell quote amount: %w", err)
	}

	feedCfg := func(side domain.Side, amount uint64) app.QuoteFeedConfig {
		return app.QuoteFeedConfig{
			Pair:         pair,
			Side:         side,
			Amount:       amount,
			SlippageBps:  cfg.Router.SlippageBps,
			Mode:         cfg.Router.Mode,
			PollInterval: cfg.Router.PollInterval,
			Timeout:      cfg.Router.Timeout,
			StartupDelay: cfg.Arbitrage.StartupDelay,
		}
	}

	buy, err := app.NewQuoteFeed(feedCfg(domain.SideBuy, cfg.Router.QuoteAmountNative), source, log)
	if err != nil {
		return nil, err
	}
	sell, err := app.NewQuoteFeed(feedCfg(domain.SideSell, sellAmount), source, log)
	if err != nil {
		return nil, err
	}

	store := domain.NewSnapshotStore()
	stream, err := app.NewBookStream(app.BookStreamConfig{
		Market:           cfg.Market.PerpMarket,
		HandshakeTimeout: cfg.Feed.SubscribeTimeout,
		StartupDelay:     cfg.Arbitrage.StartupDelay,
	}, feed, store, log)
	if err != nil {
		return nil, err
	}

	return app.NewPricingService(buy, sell, stream, store, log), nil
}

// Startup wires the optional snapshot mirror and launches the feeds.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	svc := pricingDI.GetPricingService(mono.Services())

	if cfg.Redis.Enabled {
		mirror, err := redisinfra.New(ctx, redisinfra.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			// The mirror is optional; trading does not depend on it.
			log.Warn(ctx, "redis snapshot mirror disabled", "error", err)
		} else {
			svc.Stream().SetMirror(mirror)
			mono.OnClose(mirror.Close)
			log.Info(ctx, "redis snapshot mirror enabled", "addr", cfg.Redis.Addr)
		}
	}

	mono.Go("pricing", svc.Run)

	pair := cfg.Market.BaseMint + "/" + cfg.Market.QuoteMint
	base, okBase := mono.AssetRegistry().GetByMint(cfg.Market.BaseMint)
	quote, okQuote := mono.AssetRegistry().GetByMint(cfg.Market.QuoteMint)
	if okBase && okQuote {
		pair = base.Symbol() + "/" + quote.Symbol()
	}

	log.Info(ctx, "pricing module started",
		"pair", pair,
		"market", cfg.Market.PerpMarket,
		"router", cfg.Router.URL,
		"feed", cfg.Feed.WebSocketURL)
	return nil
}
