package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rendis/leadtap/internal/engine/storage"
	"github.com/rendis/leadtap/internal/tui/styles"
)

type FilePickerModel struct {
	dir     string
	files   []os.DirEntry
	cursor  int
	err     error
	summary dbSummaryMsg
}

// dbSummaryMsg describes the highlighted database.
type dbSummaryMsg struct {
	Path    string
	Runs    int
	Leads   int
	Keyword string
	Err     error
}

func summarize(path string) tea.Cmd {
	return func() tea.Msg {
		sum := dbSummaryMsg{Path: path}
		store, err := storage.NewStore(path, "")
		if err != nil {
			sum.Err = err
			return sum
		}
		defer store.Close()

		runs, err := store.Runs()
		if err != nil {
			sum.Err = err
			return sum
		}
		sum.Runs = len(runs)
		if len(runs) > 0 {
			sum.Keyword = runs[0].Keyword
		}
		sum.Leads, sum.Err = store.Count()
		return sum
	}
}

const (
	defaultLeadsDir = "leads"
	pickerRows      = 15
)

// NewFilePickerModel starts in ./leads when present, where collections are
// written by default, else in the working directory.
func NewFilePickerModel() FilePickerModel {
	dir, _ := os.Getwd()
	if info, err := os.Stat(filepath.Join(dir, defaultLeadsDir)); err == nil && info.IsDir() {
		dir = filepath.Join(dir, defaultLeadsDir)
	}
	m := FilePickerModel{dir: dir}
	m.loadDir()
	return m
}

func (m *FilePickerModel) loadDir() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.err = err
		return
	}

	m.files = nil
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() || strings.HasSuffix(name, ".db") {
			m.files = append(m.files, e)
		}
	}
	m.cursor = 0
}

func (m FilePickerModel) Init() tea.Cmd {
	return m.highlight()
}

// highlight summarizes the entry under the cursor when it is a database.
func (m FilePickerModel) highlight() tea.Cmd {
	if m.cursor >= len(m.files) || m.files[m.cursor].IsDir() {
		return nil
	}
	return summarize(filepath.Join(m.dir, m.files[m.cursor].Name()))
}

func (m FilePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dbSummaryMsg:
		m.summary = msg
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				return m, m.highlight()
			}
		case "down", "j":
			if m.cursor < len(m.files)-1 {
				m.cursor++
				return m, m.highlight()
			}
		case "enter":
			if m.cursor < len(m.files) {
				entry := m.files[m.cursor]
				fullPath := filepath.Join(m.dir, entry.Name())
				if entry.IsDir() {
					m.dir = fullPath
					m.loadDir()
					return m, m.highlight()
				}
				nav := NavigateToExplorer{DBPath: fullPath}
				if m.summary.Path == fullPath {
					nav.Keyword = m.summary.Keyword
				}
				return m, func() tea.Msg { return nav }
			}
		case "backspace":
			parent := filepath.Dir(m.dir)
			if parent != m.dir {
				m.dir = parent
				m.loadDir()
				return m, m.highlight()
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		}
	}
	return m, nil
}

func (m FilePickerModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Load Leads Database"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(m.dir))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		return styles.Border.Render(b.String())
	}

	if len(m.files) == 0 {
		b.WriteString(styles.Hint.Render("No .db files or directories found"))
	}

	start, end := window(m.cursor, len(m.files), pickerRows)
	for i := start; i < end; i++ {
		entry := m.files[i]
		cursor, style := "  ", styles.InactiveItem
		if i == m.cursor {
			cursor, style = "> ", styles.ActiveItem
		}

		if entry.IsDir() {
			fmt.Fprintf(&b, "%s📁 %s\n", cursor, style.Render(entry.Name()+"/"))
			continue
		}
		meta := ""
		if info, err := entry.Info(); err == nil {
			meta = fmt.Sprintf("  %s, %s", humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
		}
		fmt.Fprintf(&b, "%s💾 %s%s\n", cursor, style.Render(entry.Name()),
			lipgloss.NewStyle().Foreground(styles.Muted).Render(meta))
	}

	if sel := m.selectedPath(); sel != "" && sel == m.summary.Path {
		b.WriteString("\n")
		info := lipgloss.NewStyle().Foreground(styles.Muted)
		if m.summary.Err != nil {
			b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Cannot read database: %v", m.summary.Err)))
		} else {
			line := fmt.Sprintf("%d leads in %d runs", m.summary.Leads, m.summary.Runs)
			if m.summary.Keyword != "" {
				line += fmt.Sprintf(" • latest %q", m.summary.Keyword)
			}
			b.WriteString(info.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter open • backspace parent dir • esc back"))

	return styles.Border.Render(b.String())
}

// window returns the [start, end) slice of n rows to show so that cursor
// stays visible with a few rows of lookahead.
func window(cursor, n, rows int) (int, int) {
	start := max(cursor-(rows-3), 0)
	return start, min(start+rows, n)
}

func (m FilePickerModel) selectedPath() string {
	if m.cursor >= len(m.files) || m.files[m.cursor].IsDir() {
		return ""
	}
	return filepath.Join(m.dir, m.files[m.cursor].Name())
}
