package report

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("#4ECDC4")
	subtleColor = lipgloss.Color("#666666")

	// TitleStyle renders section titles in terminal output.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)

	// SubtleStyle renders secondary text such as counts and hints.
	SubtleStyle = lipgloss.NewStyle().Foreground(subtleColor)

	headerStyle = lipgloss.NewStyle().Bold(true)
)
