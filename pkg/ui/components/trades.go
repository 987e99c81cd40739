// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// TradeRow represents a trade in the list.
type TradeRow struct {
	Time      string
	ID        string
	Direction string
	BaseQty   decimal.Decimal
	SpreadPct decimal.Decimal
	Status    string
	Elapsed   string
}

// TradesComponent renders the trade history with scrolling.
type TradesComponent struct {
	rows    []TradeRow
	maxRows int
	visible int
	offset  int
}

// NewTradesComponent creates a trades component keeping maxRows entries.
func NewTradesComponent(maxRows, visible int) *TradesComponent {
	return &TradesComponent{
		rows:    make([]TradeRow, 0),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add prepends a trade.
func (t *TradesComponent) Add(row TradeRow) {
	t.rows = append([]TradeRow{row}, t.rows...)
	if len(t.rows) > t.maxRows {
		t.rows = t.rows[:t.maxRows]
	}
}

// Len returns the number of stored trades.
func (t *TradesComponent) Len() int { return len(t.rows) }

// Clear clears all trades.
func (t *TradesComponent) Clear() {
	t.rows = make([]TradeRow, 0)
	t.offset = 0
}

// ScrollUp moves the window towards newer trades.
func (t *TradesComponent) ScrollUp() {
	if t.offset > 0 {
		t.offset--
	}
}

// ScrollDown moves the window towards older trades.
func (t *TradesComponent) ScrollDown() {
	if t.offset+t.visible < len(t.rows) {
		t.offset++
	}
}

// View renders the trades component.
func (t *TradesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	badStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	result := headerStyle.Render(fmt.Sprintf("TRADES (%d)", len(t.rows))) + "\n"
	if len(t.rows) == 0 {
		return result + "No trades executed yet..."
	}

	result += "┌──────────┬──────────┬──────┬──────────┬──────────┬───────────┬─────────┐\n"
	result += "│   Time   │    ID    │ Dir  │   Size   │  Spread  │  Status   │ Elapsed │\n"
	result += "├──────────┼──────────┼──────┼──────────┼──────────┼───────────┼─────────┤\n"

	end := t.offset + t.visible
	if end > len(t.rows) {
		end = len(t.rows)
	}
	for _, row := range t.rows[t.offset:end] {
		style := okStyle
		switch row.Status {
		case "aborted":
			style = warnStyle
		case "dangling":
			style = badStyle
		}
		id := row.ID
		if len(id) > 8 {
			id = id[:8]
		}
		result += fmt.Sprintf("│ %8s │ %8s │ %4s │%9s │%9s │ %s │%8s │\n",
			row.Time,
			id,
			row.Direction,
			row.BaseQty.StringFixed(4),
			row.SpreadPct.StringFixed(3)+"%",
			style.Render(fmt.Sprintf("%-9s", row.Status)),
			row.Elapsed,
		)
	}

	result += "└──────────┴──────────┴──────┴──────────┴──────────┴───────────┴─────────┘"
	return result
}
