package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/model"
	"github.com/rendis/leadtap/internal/tui/styles"
)

const defaultMaxResults = 20

// Field indices. fieldAnalyzer is a toggle, not a textinput.
const (
	fieldAnalyzer = iota
	fieldRegion
	fieldIndustry
	fieldExtra
	fieldMax
	fieldNear
	fieldOutput
	fieldCount
)

type SearchModel struct {
	inputs   []textinput.Model
	analyzer string
	focused  int
	err      string
}

func NewSearchModel() SearchModel {
	inputs := make([]textinput.Model, fieldCount)

	inputs[fieldAnalyzer] = textinput.New() // placeholder, never used
	inputs[fieldRegion] = newInput("Kyoto", "", 40)
	inputs[fieldIndustry] = newInput("printing", "", 40)
	inputs[fieldExtra] = newInput("optional: offset, wholesale...", "", 40)
	inputs[fieldMax] = newInput(strconv.Itoa(defaultMaxResults), "", 5)
	inputs[fieldNear] = newInput("optional: bias results towards a place", "", 40)
	inputs[fieldOutput] = newInput("./leads", "./leads", 50)

	return SearchModel{
		inputs:   inputs,
		analyzer: config.AnalyzerBrowser,
		focused:  fieldAnalyzer,
	}
}

func newInput(placeholder, value string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 100
	if width > 0 {
		ti.Width = width
	}
	if value != "" {
		ti.SetValue(value)
	}
	return ti
}

func (m SearchModel) Init() tea.Cmd {
	return nil
}

func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		case "up", "shift+tab":
			m.err = ""
			return m, m.focusPrev()
		case "down", "tab":
			m.err = ""
			return m, m.focusNext()
		case "enter":
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}
			return m, nil
		case "left":
			if m.focused == fieldAnalyzer {
				m.analyzer = config.AnalyzerBrowser
				return m, nil
			}
		case "right":
			if m.focused == fieldAnalyzer {
				m.analyzer = config.AnalyzerStatic
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	if m.focused != fieldAnalyzer && m.focused < fieldCount {
		m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	}
	return m, cmd
}

func (m *SearchModel) focusNext() tea.Cmd {
	return m.focus((m.focused + 1) % fieldCount)
}

func (m *SearchModel) focusPrev() tea.Cmd {
	return m.focus((m.focused + fieldCount - 1) % fieldCount)
}

func (m *SearchModel) focus(idx int) tea.Cmd {
	if m.focused != fieldAnalyzer {
		m.inputs[m.focused].Blur()
	}
	m.focused = idx
	if idx == fieldAnalyzer {
		return nil
	}
	m.inputs[idx].Focus()
	return textinput.Blink
}

func (m *SearchModel) value(idx int) string {
	return strings.TrimSpace(m.inputs[idx].Value())
}

func (m *SearchModel) submit() tea.Cmd {
	region, industry := m.value(fieldRegion), m.value(fieldIndustry)
	if region == "" || industry == "" {
		m.err = "Region and industry are required"
		return nil
	}

	limit := defaultMaxResults
	if raw := m.value(fieldMax); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < model.MinResults || n > model.MaxResults {
			m.err = fmt.Sprintf("Max results must be between %d and %d", model.MinResults, model.MaxResults)
			return nil
		}
		limit = n
	}

	output := m.value(fieldOutput)
	if output == "" {
		m.err = "Output directory is required"
		return nil
	}

	msg := StartScanMsg{
		Region:     region,
		Industry:   industry,
		Extra:      m.value(fieldExtra),
		MaxResults: limit,
		Near:       m.value(fieldNear),
		Analyzer:   m.analyzer,
		Output:     output,
	}
	return func() tea.Msg { return msg }
}

func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("New Search") + "\n\n")

	b.WriteString(m.renderAnalyzer())
	b.WriteString("\n")

	b.WriteString(m.renderField("Region:", fieldRegion))
	b.WriteString(m.renderField("Industry:", fieldIndustry))
	b.WriteString(m.renderField("Extra:", fieldExtra))

	if kw := model.ComposeKeyword(m.value(fieldRegion), m.value(fieldIndustry), m.value(fieldExtra)); kw != "" {
		b.WriteString(styles.Hint.Render(fmt.Sprintf("  keyword: %q", kw)) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderField("Max results:", fieldMax))
	if m.focused == fieldMax {
		hint := styles.Hint.Render(fmt.Sprintf("  %d-%d | every lead costs a detail view and a website visit", model.MinResults, model.MaxResults))
		b.WriteString(hint + "\n")
	}
	b.WriteString(m.renderField("Near:", fieldNear))
	b.WriteString(m.renderField("Output:", fieldOutput))

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render("  " + m.err))
	}

	b.WriteString("\n\n")
	b.WriteString(styles.StatusBar.Render("enter start • tab next • esc back"))

	return styles.Border.Render(b.String())
}

func (m SearchModel) renderAnalyzer() string {
	label := styles.Label.Render("Websites:")

	active := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(styles.Muted)

	var browserStr, staticStr string
	if m.analyzer == config.AnalyzerBrowser {
		browserStr = active.Render("< Browser >")
		staticStr = inactive.Render("Static")
	} else {
		browserStr = inactive.Render("Browser")
		staticStr = active.Render("< Static >")
	}

	line := fmt.Sprintf("%s  %s   %s", label, browserStr, staticStr)
	if m.focused == fieldAnalyzer {
		line += lipgloss.NewStyle().Foreground(styles.Secondary).Render(" ←→")
	}
	return line + "\n"
}

func (m SearchModel) renderField(label string, idx int) string {
	l := styles.Label.Render(label)
	v := m.inputs[idx].View()
	return fmt.Sprintf("%s %s\n", l, v)
}

// Messages
type NavigateToHome struct{}

// StartScanMsg carries a validated search form.
type StartScanMsg struct {
	Region     string
	Industry   string
	Extra      string
	MaxResults int
	Near       string
	Analyzer   string
	Output     string
}

// Keyword is the search phrase the form composes.
func (s StartScanMsg) Keyword() string {
	return model.ComposeKeyword(s.Region, s.Industry, s.Extra)
}
