// Package arbitrage implements the arbitrage bounded context: evaluating the
// swap against the perp book and sequencing the two trade legs.
package arbitrage

import (
	"context"
	"os"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/perp-arbitrage-bot/business/arbitrage/di"
	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/infra"
	executionDI "github.com/fd1az/perp-arbitrage-bot/business/execution/di"
	pricingDI "github.com/fd1az/perp-arbitrage-bot/business/pricing/di"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/config"
	"github.com/fd1az/perp-arbitrage-bot/internal/di"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/fd1az/perp-arbitrage-bot/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Reporter (private) - TUI or console
	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Arbitrage.TUIMode {
			return infra.NewTUIReporter(nil)
		}
		return infra.NewConsoleReporter(os.Stdout, cfg.App.LogLevel == "debug")
	})

	// Register Journal (private) - nil when no path is configured
	di.RegisterToken(c, arbitrageDI.Journal, func(sr di.ServiceRegistry) *infra.Journal {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Arbitrage.JournalPath == "" {
			return nil
		}
		j, err := infra.OpenJournal(cfg.Arbitrage.JournalPath)
		if err != nil {
			panic("failed to open trade journal: " + err.Error())
		}
		return j
	})

	// Register Telegram (private) - nil unless enabled
	di.RegisterToken(c, arbitrageDI.Telegram, func(sr di.ServiceRegistry) *infra.Telegram {
		cfg := sr.Get("config").(*config.Config)
		if !cfg.Notify.TelegramEnabled {
			return nil
		}
		tg, err := infra.NewTelegram(infra.TelegramConfig{
			APIURL: cfg.Notify.TelegramAPIURL,
			Token:  cfg.Notify.TelegramToken,
			ChatID: cfg.Notify.TelegramChatID,
		})
		if err != nil {
			panic("failed to create telegram notifier: " + err.Error())
		}
		return tg
	})

	// Register Sequencer (private)
	di.RegisterToken(c, arbitrageDI.Sequencer, func(sr di.ServiceRegistry) *app.Sequencer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var journal app.Journal
		if j := arbitrageDI.GetJournal(sr); j != nil {
			journal = j
		}
		var alerters []app.Alerter
		if tg := arbitrageDI.GetTelegram(sr); tg != nil {
			alerters = append(alerters, tg)
		}

		seq, err := app.NewSequencer(sequencerConfig(cfg), executionDI.GetExecutionService(sr), journal, log, alerters...)
		if err != nil {
			panic("failed to create trade sequencer: " + err.Error())
		}
		return seq
	})

	// Register ArbitrageService (public)
	di.RegisterToken(c, arbitrageDI.ArbitrageService, func(sr di.ServiceRegistry) *app.ArbitrageService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		pricing := pricingDI.GetPricingService(sr)
		reporter := arbitrageDI.GetReporter(sr)
		seq := arbitrageDI.GetSequencer(sr)

		eval, err := app.NewEvaluator(
			evaluatorConfig(cfg),
			pricing.BuyFeed().Mailbox(),
			pricing.SellFeed().Mailbox(),
			pricing.Snapshots(),
			executionDI.GetExecutionService(sr),
			seq,
			reporter,
			log,
		)
		if err != nil {
			panic("failed to create evaluator: " + err.Error())
		}
		return app.NewArbitrageService(eval, seq, reporter, pricing, cfg.Feed.StaleTimeout, log)
	})

	// Register Alerter (public) - reporter plus external channels
	di.RegisterToken(c, arbitrageDI.Alerter, func(sr di.ServiceRegistry) app.Alerter {
		reporter := arbitrageDI.GetReporter(sr)
		tg := arbitrageDI.GetTelegram(sr)
		return app.AlertFunc(func(ctx context.Context, alert domain.Alert) error {
			reporter.ReportAlert(alert)
			if tg == nil {
				return nil
			}
			return tg.Alert(ctx, alert)
		})
	})

	return nil
}

func sequencerConfig(cfg *config.Config) app.SequencerConfig {
	return app.SequencerConfig{
		Market:         cfg.Market.PerpMarket,
		BaseMint:       cfg.Market.BaseMint,
		QuoteMint:      cfg.Market.QuoteMint,
		BaseDecimals:   cfg.Market.BaseDecimals,
		QuoteDecimals:  cfg.Market.QuoteDecimals,
		BaseLotSize:    cfg.Market.BaseLotSize,
		QuoteLotSize:   cfg.Market.QuoteLotSize,
		BaseQty:        cfg.Arbitrage.BaseQtyDecimal(),
		MaxQuoteAmount: cfg.Arbitrage.MaxQuoteAmountDecimal(),
		SlippageBps:    cfg.Execution.SlippageBps,
	}
}

func evaluatorConfig(cfg *config.Config) app.EvaluatorConfig {
	return app.EvaluatorConfig{
		Threshold:          cfg.Arbitrage.ThresholdDecimal(),
		BaseQty:            cfg.Arbitrage.BaseQtyDecimal(),
		AllowanceThreshold: cfg.Arbitrage.AllowanceThresholdDecimal(),
		ScanInterval:       cfg.Arbitrage.ScanInterval,
		StaleTimeout:       cfg.Feed.StaleTimeout,
		Cooldown:           cfg.Arbitrage.Cooldown,
		StartupDelay:       cfg.Arbitrage.StartupDelay,
		DryRun:             cfg.Arbitrage.DryRun,
	}
}

// Startup starts the reporter, the evaluator loops and the summary schedule.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	sr := mono.Services()

	svc := arbitrageDI.GetArbitrageService(sr)
	reporter := arbitrageDI.GetReporter(sr)

	if tui, ok := reporter.(*infra.TUIReporter); ok {
		tui.SetStatsSource(svc)
	}
	if err := reporter.Start(ctx); err != nil {
		return err
	}
	mono.OnClose(reporter.Stop)

	if j := arbitrageDI.GetJournal(sr); j != nil {
		mono.OnClose(j.Close)
	}

	if cfg.Arbitrage.SummarySchedule != "" {
		var notifier app.Notifier
		if tg := arbitrageDI.GetTelegram(sr); tg != nil {
			notifier = tg
		}
		summary, err := infra.NewSummary(cfg.Arbitrage.SummarySchedule, svc, notifier, log)
		if err != nil {
			return err
		}
		mono.Go("summary", summary.Run)
	}

	mono.Go("arbitrage", svc.Run)

	log.Info(ctx, "arbitrage module started",
		"threshold", cfg.Arbitrage.ThresholdDecimal().String(),
		"base_qty", cfg.Arbitrage.BaseQtyDecimal().String(),
		"size_lots", svc.Sequencer().SizeLots(),
		"dry_run", cfg.Arbitrage.DryRun,
		"journal", cfg.Arbitrage.JournalPath != "")
	return nil
}

// NotifyFailure alerts every channel about the error that stopped the bot.
// It is a no-op for errors that are not critical.
func NotifyFailure(ctx context.Context, mono monolith.Monolith, err error) error {
	if !apperror.IsCritical(err) {
		return nil
	}
	alerter := arbitrageDI.GetAlerter(mono.Services())
	return alerter.Alert(ctx, domain.NewAlert(err, "", time.Now()))
}
