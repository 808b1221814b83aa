package ui

import "github.com/charmbracelet/lipgloss"

var (
	highlight = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	muted     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	danger    = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F6D"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(highlight).
			Padding(0, 1)

	cursorStyle    = lipgloss.NewStyle().Foreground(highlight).Bold(true)
	doneStyle      = lipgloss.NewStyle().Strikethrough(true).Foreground(muted)
	mutedStyle     = lipgloss.NewStyle().Foreground(muted)
	errorStyle     = lipgloss.NewStyle().Foreground(danger).Bold(true)
	helpStyle      = lipgloss.NewStyle().Foreground(muted)
	fabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(highlight).Bold(true).Padding(0, 1)
	buttonStyle    = lipgloss.NewStyle().Foreground(highlight).Bold(true).Padding(0, 1)
	disabledButton = lipgloss.NewStyle().Foreground(muted).Padding(0, 1)

	dialogStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Padding(1, 2).
			Width(dialogWidth)
)

const dialogWidth = 50
