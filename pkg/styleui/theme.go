// Package styleui holds the lipgloss theme and event-line renderer the
// cmd/wna commands use, trimmed from
// kerbaras-mangas/pkg/app/styles/theme.go down to what a thin,
// non-interactive CLI needs: no card/tab/input styles, since there is
// no TUI here (see DESIGN.md for why bubbletea/bubbles were dropped).
package styleui

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.Color("#FF6B9D")
	Success = lipgloss.Color("#C3E88D")
	Warning = lipgloss.Color("#FFCB6B")
	ErrColor = lipgloss.Color("#F07178")
	Info    = lipgloss.Color("#82AAFF")
	Muted   = lipgloss.Color("#546E7A")
)

var (
	TitleStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	TextStyle = lipgloss.NewStyle()

	MutedStyle = lipgloss.NewStyle().
		Foreground(Muted)

	StatusRunning = lipgloss.NewStyle().
		Foreground(Info).
		Bold(true)

	StatusDone = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	StatusError = lipgloss.NewStyle().
		Foreground(ErrColor).
		Bold(true)
)

// PhaseStyle maps an orchestrator.Phase's string value to the style
// used to render it, matching
// kerbaras-mangas/pkg/app/styles/theme.go's StatusStyle switch.
func PhaseStyle(phase string) lipgloss.Style {
	switch phase {
	case "done":
		return StatusDone
	case "error":
		return StatusError
	default:
		return StatusRunning
	}
}
