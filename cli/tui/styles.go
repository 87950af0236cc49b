// Package tui provides Bubble Tea components for the grove CLI.
//
// TUI mode is opt-in (--tui) and read-only: it renders the same
// payloads as plain rendering, for the inspect and best commands only.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#059669") // Green
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	accentColor  = lipgloss.Color("#3B82F6")
)

// Styles for TUI components.
var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// GoodStyle for non-buggy nodes and healthy counts.
	GoodStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// BuggyStyle for buggy nodes and failure counts.
	BuggyStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// MetricStyle for metric values.
	MetricStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	// BoxStyle for bordered containers.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// CodeStyle for candidate code blocks.
	CodeStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// VerdictStyle returns the style for a node verdict.
func VerdictStyle(isBuggy bool) lipgloss.Style {
	if isBuggy {
		return BuggyStyle
	}
	return GoodStyle
}
