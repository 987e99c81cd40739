// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents a feed's status.
type ConnectionStatus struct {
	Name       string
	Connected  bool
	Latency    time.Duration
	LastUpdate time.Time
}

// StatusComponent renders feed status as a single line.
type StatusComponent struct {
	connections []ConnectionStatus
}

// NewStatusComponent creates a status component with the given feeds
// shown as disconnected until the first update.
func NewStatusComponent(names ...string) *StatusComponent {
	s := &StatusComponent{connections: make([]ConnectionStatus, 0, len(names))}
	for _, n := range names {
		s.connections = append(s.connections, ConnectionStatus{Name: n})
	}
	return s
}

// Update updates a feed's status.
func (s *StatusComponent) Update(status ConnectionStatus) {
	for i, conn := range s.connections {
		if conn.Name == status.Name {
			s.connections[i] = status
			return
		}
	}
	s.connections = append(s.connections, status)
}

// Get returns the status for name.
func (s *StatusComponent) Get(name string) (ConnectionStatus, bool) {
	for _, conn := range s.connections {
		if conn.Name == name {
			return conn, true
		}
	}
	return ConnectionStatus{}, false
}

// View renders the status component.
func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "No connections"
	}

	connected := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	disconnected := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	parts := make([]string, 0, len(s.connections))
	for _, conn := range s.connections {
		if !conn.Connected {
			parts = append(parts, disconnected.Render("○ "+conn.Name+" (stale)"))
			continue
		}
		label := "● " + conn.Name
		if conn.Latency > 0 {
			label += fmt.Sprintf(" (%dms)", conn.Latency.Milliseconds())
		}
		parts = append(parts, connected.Render(label))
	}
	return strings.Join(parts, "  │  ")
}
