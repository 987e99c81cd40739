// Package ui provides the Bubble Tea TUI for the arbitrage bot.
package ui

import (
	"time"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/pkg/ui/components"
)

// EvaluationMsg carries one directional evaluation.
type EvaluationMsg struct {
	Evaluation *domain.Evaluation
}

// TradeMsg carries a finished trade.
type TradeMsg struct {
	Trade *domain.Trade
}

// AlertMsg carries an operator alert.
type AlertMsg struct {
	Alert domain.Alert
}

// StatsMsg refreshes the counters panel.
type StatsMsg struct {
	Stats components.Stats
}

// ConnectionStatusMsg is sent when a feed's freshness changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // config, orderbook, router, execution
	Status  string // "connecting", "connected", "failed"
	Message string
}
