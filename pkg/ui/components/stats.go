// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds counters for display.
type Stats struct {
	Evaluations int64
	Profitable  int64
	DryRuns     int64
	Skipped     int64
	Completed   int64
	Aborted     int64
	Dangling    int64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	profitableRate := float64(0)
	if s.stats.Evaluations > 0 {
		profitableRate = float64(s.stats.Profitable) / float64(s.stats.Evaluations) * 100
	}

	danglingDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Dangling))
	if s.stats.Dangling > 0 {
		danglingDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Dangling))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Evaluations: %s  │  Profitable: %s (%.1f%%)  │  Dry runs: %s  │  Skipped: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Evaluations)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Profitable)),
			profitableRate,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.DryRuns)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Skipped)),
		) +
		fmt.Sprintf("Trades completed: %s  │  Aborted: %s  │  Dangling: %s",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Completed)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Aborted)),
			danglingDisplay,
		)
}
