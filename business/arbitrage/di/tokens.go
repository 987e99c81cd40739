// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/infra"
	"github.com/fd1az/perp-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ArbitrageService = di.NewToken[*app.ArbitrageService]("arbitrage.ArbitrageService")
	// Alerter reaches the reporter and every external channel.
	Alerter = di.NewToken[app.Alerter]("arbitrage.Alerter")
)

// Private dependency tokens - internal to arbitrage module
var (
	Reporter  = di.NewToken[app.Reporter]("arbitrage:reporter")
	Sequencer = di.NewToken[*app.Sequencer]("arbitrage:sequencer")
	// Journal and Telegram resolve to nil when disabled.
	Journal  = di.NewToken[*infra.Journal]("arbitrage:journal")
	Telegram = di.NewToken[*infra.Telegram]("arbitrage:telegram")
)

// Helper functions for type-safe access
func GetArbitrageService(c di.ServiceRegistry) *app.ArbitrageService {
	return di.GetToken(c, ArbitrageService)
}

func GetAlerter(c di.ServiceRegistry) app.Alerter {
	return di.GetToken(c, Alerter)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetSequencer(c di.ServiceRegistry) *app.Sequencer {
	return di.GetToken(c, Sequencer)
}

func GetJournal(c di.ServiceRegistry) *infra.Journal {
	return di.GetToken(c, Journal)
}

func GetTelegram(c di.ServiceRegistry) *infra.Telegram {
	return di.GetToken(c, Telegram)
}
