package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rendis/leadtap/internal/tui/styles"
)

type RecentEntry struct {
	Path     string
	Keyword  string
	OpenedAt time.Time
	missing  bool
}

type RecentModel struct {
	entries []RecentEntry
	cursor  int
	err     string
}

// NewRecentModel lists entries newest first. Entries whose database file is
// gone stay listed, struck through, until forgotten.
func NewRecentModel(entries []RecentEntry) RecentModel {
	for i := range entries {
		if _, err := os.Stat(entries[i].Path); os.IsNotExist(err) {
			entries[i].missing = true
		}
	}
	return RecentModel{entries: entries}
}

func (m RecentModel) Init() tea.Cmd {
	return nil
}

func (m RecentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.err = ""
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor >= len(m.entries) {
			return m, nil
		}
		e := m.entries[m.cursor]
		if e.missing {
			m.err = "File no longer exists; press d to forget it"
			return m, nil
		}
		return m, func() tea.Msg {
			return NavigateToExplorer{DBPath: e.Path, Keyword: e.Keyword}
		}
	case "d":
		if m.cursor >= len(m.entries) {
			return m, nil
		}
		path := m.entries[m.cursor].Path
		m.entries = append(m.entries[:m.cursor:m.cursor], m.entries[m.cursor+1:]...)
		if m.cursor >= len(m.entries) && m.cursor > 0 {
			m.cursor--
		}
		return m, func() tea.Msg { return ForgetRecentMsg{Path: path} }
	case "esc":
		return m, func() tea.Msg { return NavigateToHome{} }
	}
	return m, nil
}

func (m RecentModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Recent Collections"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(styles.Hint.Render("No recent collections"))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return styles.Border.Render(b.String())
	}

	keywordStyle := lipgloss.NewStyle().Foreground(styles.Secondary)
	missingStyle := lipgloss.NewStyle().Foreground(styles.Error).Strikethrough(true)
	metaStyle := lipgloss.NewStyle().Foreground(styles.Muted)

	for i, entry := range m.entries {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		var title string
		if entry.missing {
			title = missingStyle.Render(filepath.Base(entry.Path))
		} else {
			title = style.Render(filepath.Base(entry.Path))
		}
		if entry.Keyword != "" {
			title += keywordStyle.Render(fmt.Sprintf("  %q", entry.Keyword))
		}
		meta := metaStyle.Render(fmt.Sprintf("  %s  %s", filepath.Dir(entry.Path), humanize.Time(entry.OpenedAt)))

		fmt.Fprintf(&b, "%s%s\n%s\n", cursor, title, meta)
	}

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render(m.err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter open • d forget • esc back"))

	return styles.Border.Render(b.String())
}

// NavigateToRecent signals navigation to recent collections view.
type NavigateToRecent struct{}

// ForgetRecentMsg asks the app to drop Path from the recent list.
type ForgetRecentMsg struct {
	Path string
}
