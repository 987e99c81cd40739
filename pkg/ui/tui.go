// Package ui provides the Bubble Tea TUI for the arbitrage bot.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/pkg/ui/components"
)

// Feed names shown in the status bar.
const (
	FeedOrderBook = "OrderBook"
	FeedRouter    = "Router"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var stepOrder = []string{"config", "orderbook", "router", "execution"}

// feedSteps maps a feed name to the startup step it completes.
var feedSteps = map[string]string{
	FeedOrderBook: "orderbook",
	FeedRouter:    "router",
}

// ErrorEntry represents an error or alert with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Options configures the dashboard header.
type Options struct {
	Market string
	Mode   string
	DryRun bool
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	spreads *components.SpreadsComponent
	trades  *components.TradesComponent
	stats   *components.StatsComponent
	status  *components.StatusComponent
	keys    KeyMap
	opts    Options

	phase        Phase
	welcomeStart time.Time

	ready      bool
	quitting   bool
	paused     bool
	width      int
	height     int
	lastUpdate time.Time
	errors     []ErrorEntry // last 3
	logs       []string

	startupComplete bool
	startupSteps    map[string]*StartupStep
	startupTime     time.Time

	evalCount    uint64
	activityFeed []string
	lastEvalTime time.Time
}

// New creates a new TUI model.
func New(opts Options) Model {
	now := time.Now()
	return Model{
		spreads:      components.NewSpreadsComponent(opts.Market, domain.BuyLowSellHigh.ShortString(), domain.BuyHighSellLow.ShortString()),
		trades:       components.NewTradesComponent(100, 10),
		stats:        components.NewStatsComponent(),
		status:       components.NewStatusComponent(FeedOrderBook, FeedRouter),
		keys:         DefaultKeyMap(),
		opts:         opts,
		phase:        PhaseWelcome,
		welcomeStart: now,
		logs:         make([]string, 0, 10),
		errors:       make([]ErrorEntry, 0, 3),
		activityFeed: make([]string, 0, 8),
		startupSteps: map[string]*StartupStep{
			"config":    {Name: "Loading configuration", Status: "pending"},
			"orderbook": {Name: "Subscribing to perp order book", Status: "pending"},
			"router":    {Name: "Polling swap router quotes", Status: "pending"},
			"execution": {Name: "Reading perp position", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Update must not block on Send.
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.trades.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.trades.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.trades.ScrollDown()
		case key.Matches(msg, m.keys.Errors):
			m.errors = make([]ErrorEntry, 0, 3)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case EvaluationMsg:
		if msg.Evaluation == nil || m.paused {
			return m, nil
		}
		e := msg.Evaluation
		m.spreads.Update(spreadRow(e))
		m.evalCount++
		m.lastEvalTime = time.Now()
		m.lastUpdate = m.lastEvalTime
		if e.IsProfitable() {
			m.activityFeed = addActivity(m.activityFeed, e.Summary())
		}

	case TradeMsg:
		if msg.Trade == nil {
			return m, nil
		}
		t := msg.Trade
		m.trades.Add(components.TradeRow{
			Time:      t.FinishedAt.Format("15:04:05"),
			ID:        t.ID,
			Direction: t.Direction.ShortString(),
			BaseQty:   t.BaseQty,
			SpreadPct: t.SpreadPct,
			Status:    string(t.Status),
			Elapsed:   t.FinishedAt.Sub(t.StartedAt).Round(time.Millisecond).String(),
		})
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("trade %s %s", t.Direction.ShortString(), t.Status))
		m.lastUpdate = time.Now()

	case AlertMsg:
		m.errors = addError(m.errors, msg.Alert.Text(), msg.Alert.At)
		m.logs = addLog(m.logs, "error", msg.Alert.Text())

	case StatsMsg:
		m.stats.Update(msg.Stats)

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		m.lastUpdate = time.Now()
		if step, ok := m.startupSteps[feedSteps[msg.Name]]; ok {
			if msg.Connected {
				step.Status = "connected"
			} else if step.Status == "pending" {
				step.Status = "connecting"
			}
		}
		m.checkStartup()

	case ErrorMsg:
		m.errors = addError(m.errors, msg.Error.Error(), time.Now())
		m.logs = addLog(m.logs, "error", msg.Error.Error())

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if msg.Message != "" {
			m.logs = addLog(m.logs, "info", msg.Message)
		}
		m.checkStartup()
	}

	return m, nil
}

func (m *Model) checkStartup() {
	for _, step := range m.startupSteps {
		if step.Status != "connected" && step.Status != "done" {
			return
		}
	}
	m.startupComplete = true
}

func spreadRow(e *domain.Evaluation) components.SpreadRow {
	p := e.Direction.Params()
	return components.SpreadRow{
		Direction:  e.Direction.ShortString(),
		SwapLabel:  "swap_" + string(p.QuoteSide),
		PerpLabel:  "perp_" + string(p.BookSide),
		SwapPrice:  e.SwapPrice,
		PerpPrice:  e.PerpPrice,
		SpreadPct:  e.Spread.Percent(),
		Threshold:  e.Threshold.Mul(decimal.NewFromInt(100)),
		Decision:   string(e.Decision),
		Allowance:  e.Allowance.String(),
		QuoteAge:   e.QuoteAge,
		Priced:     e.Decision.Priced(),
		Profitable: e.IsProfitable(),
	}
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

func addError(errs []ErrorEntry, message string, at time.Time) []ErrorEntry {
	errs = append(errs, ErrorEntry{Message: message, Timestamp: at})
	if len(errs) > 3 {
		errs = errs[len(errs)-3:]
	}
	return errs
}

// addActivity adds an activity message and returns the updated slice (keeps last 6).
func addActivity(feed []string, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s", timestamp, message)
	feed = append(feed, line)
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		if m.evalCount == 0 && !m.startupComplete {
			return m.renderStartupScreen()
		}
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Perp/Swap Arbitrage Bot "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.spreads.View() + "\n" + m.stats.View()

	var rightContent strings.Builder
	rightContent.WriteString(m.renderActivityFeed())
	rightContent.WriteString("\n\n")
	rightContent.WriteString(m.trades.View())
	rightCol := rightContent.String()

	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Width(max(m.width-4, 40)).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(max(m.width-4, 40)).Render(rightCol))
	}

	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)

		b.WriteString(errorHeader.Render("ALERTS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		pauseStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
		b.WriteString(pauseStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.keys.HelpLine()))

	return b.String()
}

func (m Model) renderActivityFeed() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	tradeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for a profitable spread..."))
		return sb.String()
	}
	for _, activity := range m.activityFeed {
		if strings.Contains(activity, "trade ") {
			sb.WriteString(tradeStyle.Render("  " + activity))
		} else {
			sb.WriteString(MutedValue.Render("  " + activity))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
	greenStyle := lipgloss.NewStyle().Foreground(ColorSecondary)

	elapsed := time.Since(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
   ██████╗ ███████╗██████╗ ██████╗     ██╗    ███████╗██╗    ██╗ █████╗ ██████╗
   ██╔══██╗██╔════╝██╔══██╗██╔══██╗   ██╔╝    ██╔════╝██║    ██║██╔══██╗██╔══██╗
   ██████╔╝█████╗  ██████╔╝██████╔╝  ██╔╝     ███████╗██║ █╗ ██║███████║██████╔╝
   ██╔═══╝ ██╔══╝  ██╔══██╗██╔═══╝  ██╔╝      ╚════██║██║███╗██║██╔══██║██╔═══╝
   ██║     ███████╗██║  ██║██║     ██╔╝       ███████║╚███╔███╔╝██║  ██║██║
   ╚═╝     ╚══════╝╚═╝  ╚═╝╚═╝     ╚═╝        ╚══════╝ ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("                         A R B I T R A G E   B O T"))
	sb.WriteString("\n\n\n")

	mode := m.opts.Mode
	if m.opts.DryRun {
		mode += " (dry run)"
	}
	sb.WriteString(goldStyle.Render(fmt.Sprintf("                     market %s  •  %s", shortKey(m.opts.Market), mode)))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("                            Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("                      Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	successStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	connectingStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	failedStyle := lipgloss.NewStyle().Foreground(ColorDanger)

	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  Perp/Swap Arbitrage Bot"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range stepOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon, statusText, style = spinners[idx], "Connecting...", connectingStyle
		case "failed":
			icon, statusText, style = "✗", "Failed", failedStyle
		default:
			icon, statusText, style = "○", "Pending", MutedValue
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			MutedValue.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")
	for _, l := range m.logs {
		sb.WriteString(MutedValue.Render("  " + l))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if time.Since(m.lastEvalTime) < 500*time.Millisecond {
		spinners := []string{"⟳", "◐", "◓", "◑", "◒"}
		idx := int(time.Now().UnixMilli()/100) % len(spinners)
		scanningStyle := lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
		parts = append(parts, scanningStyle.Render(spinners[idx]+" Evaluating"))
	}

	parts = append(parts, "Mode: "+m.opts.Mode)
	if m.opts.DryRun {
		parts = append(parts, lipgloss.NewStyle().Foreground(ColorWarning).Render("DRY RUN"))
	}
	if m.evalCount > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(ColorSecondary).Render(fmt.Sprintf("Evals: %d", m.evalCount)))
	}
	parts = append(parts, m.status.View())

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

func shortKey(k string) string {
	if len(k) <= 12 {
		return k
	}
	return k[:4] + "…" + k[len(k)-4:]
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules
// should start. main sets it before Run.
var OnStartModules func()

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	Program = tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
