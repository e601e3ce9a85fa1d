// Package ui renders terminal reports and the live dashboard.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accent     = lipgloss.Color("#7D56F4")
	productive = lipgloss.Color("#04B575")
	idle       = lipgloss.Color("#FF6B6B")
	goal       = lipgloss.Color("#F7DC6F")
	muted      = lipgloss.Color("#626262")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(accent).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(12)

	productiveStyle = lipgloss.NewStyle().Foreground(productive).Bold(true)
	idleStyle       = lipgloss.NewStyle().Foreground(idle).Bold(true)
	goalStyle       = lipgloss.NewStyle().Foreground(goal).Bold(true)
	mutedStyle      = lipgloss.NewStyle().Foreground(muted)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	headerCell = lipgloss.NewStyle().Bold(true).Underline(true)
)
