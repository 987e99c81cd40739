// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// SpreadRow is the latest evaluation of one direction.
type SpreadRow struct {
	Direction  string
	SwapLabel  string
	PerpLabel  string
	SwapPrice  decimal.Decimal
	PerpPrice  decimal.Decimal
	SpreadPct  decimal.Decimal
	Threshold  decimal.Decimal // percent
	Decision   string
	Allowance  string
	QuoteAge   time.Duration
	Priced     bool
	Profitable bool
}

// SpreadsComponent renders the swap-versus-perp table.
type SpreadsComponent struct {
	rows   map[string]SpreadRow
	order  []string
	market string
}

// NewSpreadsComponent creates a spreads component listing directions in order.
func NewSpreadsComponent(market string, order ...string) *SpreadsComponent {
	return &SpreadsComponent{
		rows:   make(map[string]SpreadRow),
		order:  order,
		market: market,
	}
}

// Update replaces the row for its direction.
func (s *SpreadsComponent) Update(row SpreadRow) {
	s.rows[row.Direction] = row
}

// SetMarket sets the displayed market name.
func (s *SpreadsComponent) SetMarket(market string) {
	s.market = market
}

// View renders the spreads component.
func (s *SpreadsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("SPREADS (%s)", s.market)))
	b.WriteString("\n\n")

	if len(s.rows) == 0 {
		b.WriteString(dimStyle.Render("  Waiting for quotes and book..."))
		return b.String()
	}

	fmt.Fprintf(&b, "  %-5s  %22s  %22s  %10s  %s\n", "Dir", "Swap", "Perp", "Spread", "Decision")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 76)) + "\n")

	for _, dir := range s.order {
		row, ok := s.rows[dir]
		if !ok {
			continue
		}
		if !row.Priced {
			fmt.Fprintf(&b, "  %-5s  %22s  %22s  %10s  %s\n",
				row.Direction, "-", "-", "-", dimStyle.Render(row.Decision))
			continue
		}

		spreadStyle := negativeStyle
		if row.Profitable {
			spreadStyle = positiveStyle
		}
		fmt.Fprintf(&b, "  %-5s  %22s  %22s  %s  %s\n",
			row.Direction,
			row.SwapLabel+" "+row.SwapPrice.StringFixed(4),
			row.PerpLabel+" "+row.PerpPrice.StringFixed(4),
			spreadStyle.Render(fmt.Sprintf("%9s%%", row.SpreadPct.StringFixed(4))),
			row.Decision,
		)
	}

	b.WriteString("\n")
	for _, dir := range s.order {
		row, ok := s.rows[dir]
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %s allowance=%s threshold=%s%%", row.Direction, row.Allowance, row.Threshold.StringFixed(4))
		if row.QuoteAge > 0 {
			line += fmt.Sprintf(" quote_age=%s", row.QuoteAge.Round(time.Millisecond))
		}
		b.WriteString(dimStyle.Render(line) + "\n")
	}

	return b.String()
}
