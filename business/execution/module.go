// Package execution implements the execution bounded context: perp orders,
// swaps and the position they leave behind.
package execution

import (
	"context"

	"github.com/fd1az/perp-arbitrage-bot/business/execution/app"
	executionDI "github.com/fd1az/perp-arbitrage-bot/business/execution/di"
	"github.com/fd1az/perp-arbitrage-bot/business/execution/infra/gateway"
	"github.com/fd1az/perp-arbitrage-bot/business/execution/infra/paper"
	"github.com/fd1az/perp-arbitrage-bot/internal/config"
	"github.com/fd1az/perp-arbitrage-bot/internal/di"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/fd1az/perp-arbitrage-bot/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Venue (private - internal dependency)
	di.RegisterToken(c, executionDI.Venue, func(sr di.ServiceRegistry) app.Venue {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		venue, err := newVenue(cfg, log)
		if err != nil {
			panic("failed to create execution venue: " + err.Error())
		}
		return venue
	})

	// Register ExecutionService (public - exposed to other modules)
	di.RegisterToken(c, executionDI.ExecutionService, func(sr di.ServiceRegistry) *app.ExecutionService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewExecutionService(executionDI.GetVenue(sr), cfg.Execution.Mode, log)
		if err != nil {
			panic("failed to create execution service: " + err.Error())
		}
		return svc
	})

	return nil
}

func newVenue(cfg *config.Config, log logger.LoggerInterface) (app.Venue, error) {
	if cfg.Execution.Mode == "gateway" {
		return gateway.NewClient(gateway.Config{
			BaseURL: cfg.Execution.GatewayURL,
			APIKey:  cfg.Execution.APIKey,
			Market:  cfg.Market.PerpMarket,
			Timeout: cfg.Execution.Timeout,
		}, log)
	}
	return paper.New(paper.Config{
		Market:       cfg.Market.PerpMarket,
		BaseDecimals: cfg.Market.BaseDecimals,
		BaseLotSize:  cfg.Market.BaseLotSize,
		FillLatency:  cfg.Execution.PaperFillLatency,
	}, log)
}

// Startup resolves the venue and checks the position is readable.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := executionDI.GetExecutionService(mono.Services())

	base, exists, err := svc.PositionBaseUI(ctx)
	if err != nil {
		// Evaluators treat a failed read as "no allowance" on every tick.
		log.Warn(ctx, "initial position read failed", "error", err)
	} else {
		log.Info(ctx, "execution module started",
			"mode", svc.Mode(),
			"position_exists", exists,
			"position_base", base.String())
	}
	return nil
}
