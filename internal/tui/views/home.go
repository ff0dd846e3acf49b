package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/tui/styles"
)

type menuItem struct {
	key   string
	label string
	desc  string
	msg   tea.Msg // nil quits
}

type HomeModel struct {
	items    []menuItem
	cursor   int
	version  string
	settings string
}

// NewHomeModel builds the start menu. cfg may be nil; when set its
// collection settings are shown under the menu.
func NewHomeModel(version string, cfg *config.Config) HomeModel {
	m := HomeModel{
		version: version,
		items: []menuItem{
			{key: "n", label: "New Search", desc: "Collect leads for a region and industry", msg: NavigateToSearch{}},
			{key: "l", label: "Load Database", desc: "Open an existing leads .db file", msg: NavigateToLoad{}},
			{key: "r", label: "Recent Collections", desc: "Reopen a recent collection", msg: NavigateToRecent{}},
			{key: "q", label: "Quit", desc: "Exit leadtap"},
		},
	}
	if cfg != nil {
		mode := "headless"
		if !cfg.Headless {
			mode = "headed"
		}
		m.settings = fmt.Sprintf("websites: %s • browser: %s • lang: %s", cfg.Analyzer, mode, cfg.Lang)
		if cfg.Throttle.Enabled() {
			m.settings += " • throttle: " + cfg.Throttle.String()
		}
	}
	return m
}

func (m HomeModel) Init() tea.Cmd {
	return nil
}

func (m HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		return m, m.selected()
	}
	for i, item := range m.items {
		if item.key == key.String() {
			m.cursor = i
			return m, m.selected()
		}
	}
	return m, nil
}

func (m HomeModel) selected() tea.Cmd {
	msg := m.items[m.cursor].msg
	if msg == nil {
		return tea.Quit
	}
	return func() tea.Msg { return msg }
}

func (m HomeModel) View() string {
	var b strings.Builder

	logo := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Render("  leadtap")
	version := lipgloss.NewStyle().
		Foreground(styles.Muted).
		Render(" " + m.version)
	tagline := lipgloss.NewStyle().
		Foreground(styles.Secondary).
		Italic(true).
		Render("  Map directory leads, sorted by how to reach them")

	b.WriteString(logo + version + "\n")
	b.WriteString(tagline + "\n\n")

	keyStyle := lipgloss.NewStyle().Foreground(styles.Secondary).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	for i, item := range m.items {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}
		fmt.Fprintf(&b, "%s%s %s%s\n", cursor,
			keyStyle.Render("["+item.key+"]"),
			style.Render(item.label),
			descStyle.Render(" - "+item.desc))
	}

	if m.settings != "" {
		b.WriteString("\n")
		b.WriteString(styles.Hint.Render("  " + m.settings))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("↑↓ navigate • enter select • q quit"))

	return styles.Border.Render(b.String())
}

// Navigation messages
type NavigateToSearch struct{}
type NavigateToLoad struct{}
