package answer

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	body     lipgloss.Style
	source   lipgloss.Style
	warning  lipgloss.Style
	instance lipgloss.Style
	detail   lipgloss.Style
	empty    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		body:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		source:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		instance: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		empty:    lipgloss.NewStyle().Faint(true),
	}
}
