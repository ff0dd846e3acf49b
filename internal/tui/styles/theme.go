package styles

import "github.com/charmbracelet/lipgloss"

// Palette. Links render in Primary; positive classifier hits (form found,
// catalog found) render in Success.
var (
	Primary   = lipgloss.Color("#2563EB") // blue
	Secondary = lipgloss.Color("#14B8A6") // teal
	Success   = lipgloss.Color("#22C55E") // green
	Warning   = lipgloss.Color("#F59E0B") // amber
	Error     = lipgloss.Color("#EF4444") // red
	Muted     = lipgloss.Color("#6B7280") // gray
	Text      = lipgloss.Color("#E5E7EB") // light gray
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Label = lipgloss.NewStyle().
		Foreground(Muted).
		Width(14)

	Link = lipgloss.NewStyle().
		Foreground(Primary).
		Underline(true)

	Hint = lipgloss.NewStyle().
		Foreground(Muted).
		Italic(true)

	ActiveItem = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	InactiveItem = lipgloss.NewStyle().
			Foreground(Muted)

	StatusBar = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1)

	Border = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(1, 2)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

func panelColor(focused bool) lipgloss.Color {
	if focused {
		return Primary
	}
	return Muted
}

// Panel boxes one explorer pane of the given outer size.
func Panel(focused bool, width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(panelColor(focused)).
		Padding(0, 1).
		Width(width).
		Height(height)
}

// PanelLabel is the heading drawn above a Panel.
func PanelLabel(focused bool, text string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(panelColor(focused)).Render(text)
}
