// Package watch implements the hearth watch TUI: a live view of a running
// engine fed by the debug API.
package watch

import "github.com/charmbracelet/lipgloss"

const (
	colorGreen  = lipgloss.Color("#98C379")
	colorYellow = lipgloss.Color("#E5C07B")
	colorRed    = lipgloss.Color("#E06C75")
	colorBlue   = lipgloss.Color("#61AFEF")
	colorGrey   = lipgloss.Color("#7F848E")
	colorDark   = lipgloss.Color("#5C6370")
	colorFrame  = lipgloss.Color("#C678DD")
	colorText   = lipgloss.Color("#ABB2BF")
)

// Theme keeps every style of the TUI in one place.
type Theme struct {
	StatusOK      lipgloss.Style
	StatusWarn    lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusStopped lipgloss.Style

	Border    lipgloss.Style
	Title     lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style
	Spark     lipgloss.Style

	TableHeader   lipgloss.Style
	TableSelected lipgloss.Style
}

func NewDefaultTheme() Theme {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	return Theme{
		StatusOK:      fg(colorGreen),
		StatusWarn:    fg(colorYellow),
		StatusFailed:  fg(colorRed).Bold(true),
		StatusStopped: fg(colorDark),

		Border:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFrame),
		Title:     fg(colorText).Bold(true).Padding(0, 1),
		Dim:       fg(colorGrey),
		Highlight: fg(colorYellow),
		Spark:     fg(colorBlue),

		TableHeader: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorDark).
			BorderBottom(true),
		TableSelected: fg(colorText).Background(colorDark),
	}
}
