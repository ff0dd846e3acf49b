package views

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
	"github.com/paulmach/orb"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rendis/leadtap/internal/engine/storage"
	"github.com/rendis/leadtap/internal/export"
	"github.com/rendis/leadtap/internal/model"
	"github.com/rendis/leadtap/internal/tui/components"
	"github.com/rendis/leadtap/internal/tui/styles"
)

// PageSize is how many rows the explorer reveals per "more" keypress.
const PageSize = 20

type focusArea int

const (
	focusTable focusArea = iota
	focusFilter
	focusCard
	focusJSON
)

type sidePanel int

const (
	panelJSON sidePanel = iota
	panelMap
)

// BrowseState is the explorer's display state for one database. The caller
// owns it so reopening a database restores where the user left off.
type BrowseState struct {
	Filter   string
	Window   int
	Selected int
}

// NewBrowseState starts at the first page with nothing filtered.
func NewBrowseState() *BrowseState {
	return &BrowseState{Window: PageSize}
}

// Visible returns the number of rows shown out of total.
func (s *BrowseState) Visible(total int) int {
	return min(s.Window, total)
}

// More reveals the next page.
func (s *BrowseState) More(total int) bool {
	if s.Window >= total {
		return false
	}
	s.Window += PageSize
	return true
}

// Reset goes back to the first page, used whenever the filter changes.
func (s *BrowseState) Reset() {
	s.Window = PageSize
	s.Selected = 0
}

// ExplorerModel displays stored leads with table + detail panels.
type ExplorerModel struct {
	dbPath   string
	state    *BrowseState
	leads    []storage.StoredLead
	filtered []storage.StoredLead
	runs     int
	table    table.Model
	filter   textinput.Model
	focus    focusArea
	side     sidePanel
	mapView  components.MapView
	width    int
	height   int
	err      error
	notice   string

	// Scroll state for detail panels
	cardScrollY int
	cardLines   []string // cached rendered card lines
	jsonScrollY int
	jsonScrollX int
	jsonLines   []string // cached raw JSON lines
	jsonRaw     string   // full JSON for clipboard copy
}

type dbLoadedMsg struct {
	Leads []storage.StoredLead
	Runs  int
	Err   error
}

func NewExplorerModel(dbPath string, state *BrowseState) ExplorerModel {
	if state == nil {
		state = NewBrowseState()
	}
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 50
	filter.SetValue(state.Filter)

	return ExplorerModel{
		dbPath:  dbPath,
		state:   state,
		filter:  filter,
		mapView: components.NewMapView(30, 8),
	}
}

func (m ExplorerModel) Init() tea.Cmd {
	dbPath := m.dbPath
	return func() tea.Msg {
		leads, runs, err := loadLeads(dbPath)
		return dbLoadedMsg{Leads: leads, Runs: runs, Err: err}
	}
}

func loadLeads(dbPath string) ([]storage.StoredLead, int, error) {
	store, err := storage.NewStore(dbPath, "")
	if err != nil {
		return nil, 0, err
	}
	defer store.Close()

	leads, err := store.Leads(uuid.Nil)
	if err != nil {
		return nil, 0, err
	}
	runs, err := store.Runs()
	if err != nil {
		return nil, 0, err
	}
	return leads, len(runs), nil
}

func (m ExplorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusTable:
			switch key {
			case "esc", "q":
				return m, func() tea.Msg { return NavigateToHome{} }
			case "/", "tab":
				m.focus = focusFilter
				m.filter.Focus()
				return m, textinput.Blink
			case "1":
				m.focus = focusCard
				m.table.SetStyles(m.unfocusedTableStyles())
				return m, nil
			case "2":
				m.side = panelJSON
				m.focus = focusJSON
				m.table.SetStyles(m.unfocusedTableStyles())
				return m, nil
			case "3":
				if m.side == panelMap {
					m.side = panelJSON
				} else {
					m.side = panelMap
				}
				return m, nil
			case "n":
				if m.state.More(len(m.filtered)) {
					m.buildTable()
					m.table.SetCursor(m.state.Selected)
				}
				return m, nil
			case "e":
				m.exportTo(export.CSV)
				return m, nil
			case "J":
				m.exportTo(export.JSON)
				return m, nil
			case "x":
				m.exportTo(export.XLSX)
				return m, nil
			}

		case focusFilter:
			switch key {
			case "esc", "enter", "tab":
				m.focus = focusTable
				m.filter.Blur()
				return m, nil
			}

		case focusCard:
			maxScroll := max(len(m.cardLines)-m.panelHeight(), 0)
			switch key {
			case "esc":
				m.focus = focusTable
				m.table.SetStyles(m.focusedTableStyles())
				return m, nil
			case "up", "k":
				if m.cardScrollY > 0 {
					m.cardScrollY--
				}
				return m, nil
			case "down", "j":
				if m.cardScrollY < maxScroll {
					m.cardScrollY++
				}
				return m, nil
			}

		case focusJSON:
			maxScroll := max(len(m.jsonLines)-m.panelHeight(), 0)
			switch key {
			case "esc":
				m.focus = focusTable
				m.table.SetStyles(m.focusedTableStyles())
				return m, nil
			case "up", "k":
				if m.jsonScrollY > 0 {
					m.jsonScrollY--
				}
				return m, nil
			case "down", "j":
				if m.jsonScrollY < maxScroll {
					m.jsonScrollY++
				}
				return m, nil
			case "left", "h":
				m.jsonScrollX = max(m.jsonScrollX-4, 0)
				return m, nil
			case "right", "l":
				m.jsonScrollX += 4
				return m, nil
			case "c":
				m.copyToClipboard()
				return m, nil
			}
		}

	case dbLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.leads = msg.Leads
		m.runs = msg.Runs
		selected := m.state.Selected
		m.filtered = filterLeads(m.leads, m.state.Filter)
		m.buildTable()
		m.updateLayout()
		switch {
		case selected >= 0 && selected < m.state.Visible(len(m.filtered)):
			m.state.Selected = selected
		case len(m.filtered) > 0:
			m.state.Selected = 0
		default:
			m.state.Selected = -1
		}
		m.table.SetCursor(m.state.Selected)
		m.refreshSelection()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusTable:
		m.table, cmd = m.table.Update(msg)
		if cursor := m.table.Cursor(); cursor != m.state.Selected && cursor < len(m.filtered) {
			m.state.Selected = cursor
			m.cardScrollY = 0
			m.jsonScrollY = 0
			m.jsonScrollX = 0
			m.refreshSelection()
		}
	case focusFilter:
		m.filter, cmd = m.filter.Update(msg)
		if v := strings.TrimSpace(m.filter.Value()); v != m.state.Filter {
			m.state.Filter = v
			m.applyFilter()
		}
	}

	return m, cmd
}

func (m *ExplorerModel) selectedLead() (storage.StoredLead, bool) {
	i := m.state.Selected
	if i < 0 || i >= len(m.filtered) {
		return storage.StoredLead{}, false
	}
	return m.filtered[i], true
}

func (m *ExplorerModel) refreshSelection() {
	m.mapView.SetSelected(m.state.Selected)

	lead, ok := m.selectedLead()
	if !ok {
		m.cardLines = nil
		m.jsonLines = nil
		m.jsonRaw = ""
		return
	}

	m.cardLines = buildCardLines(lead)

	data, err := json.MarshalIndent(lead, "", "  ")
	if err != nil {
		m.jsonLines = []string{"JSON error"}
		m.jsonRaw = ""
		return
	}
	m.jsonRaw = string(data)
	m.jsonLines = strings.Split(m.jsonRaw, "\n")
}

func buildCardLines(l storage.StoredLead) []string {
	var lines []string

	lines = append(lines, l.CompanyName)
	if l.Industry != model.Unknown {
		lines = append(lines, l.Industry)
	}
	lines = append(lines, "")

	addRow := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%-10s %s", label, value))
		}
	}

	addRow("Address:", l.Address)
	addRow("Phone:", l.Phone)
	if l.PhoneE164 != "" && l.PhoneE164 != l.Phone {
		addRow("E.164:", l.PhoneE164)
	}
	addRow("Website:", l.WebsiteURL)
	addRow("Form:", l.ContactForm)
	addRow("Social:", l.SocialLinks)
	addRow("Catalog:", l.Catalog)
	addRow("Maps:", l.MapsURL)
	if l.Lat != 0 || l.Lng != 0 {
		addRow("Coords:", fmt.Sprintf("%.6f, %.6f", l.Lat, l.Lng))
	}
	addRow("Date:", l.CollectedDate())

	if l.Remarks != "" {
		lines = append(lines, "")
		lines = append(lines, l.Remarks)
	}

	return lines
}

func (m *ExplorerModel) buildTable() {
	nameW := 26
	indW := 16
	phoneW := 14
	formW := 12
	socialW := 22
	catW := 12
	if m.width > 120 {
		extra := m.width - 120
		nameW += extra * 4 / 10
		indW += extra * 2 / 10
		socialW += extra * 4 / 10
	}

	columns := []table.Column{
		{Title: "Company", Width: nameW},
		{Title: "Industry", Width: indW},
		{Title: "Phone", Width: phoneW},
		{Title: "Form", Width: formW},
		{Title: "Social", Width: socialW},
		{Title: "Catalog", Width: catW},
	}

	visible := m.filtered[:m.state.Visible(len(m.filtered))]
	rows := make([]table.Row, len(visible))
	for i, l := range visible {
		rows[i] = table.Row{
			truncate(l.CompanyName, nameW),
			truncate(l.Industry, indW),
			truncate(l.Phone, phoneW),
			l.ContactForm,
			truncate(l.SocialLinks, socialW),
			l.Catalog,
		}
	}

	height := 10
	if m.height > 0 {
		height = max(m.height/2-4, 5)
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	t.SetStyles(m.focusedTableStyles())
	m.table = t

	points := make([]orb.Point, len(m.filtered))
	for i, l := range m.filtered {
		points[i] = orb.Point{l.Lng, l.Lat}
	}
	m.mapView.SetPoints(points)
}

func (m ExplorerModel) focusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	return s
}

func (m ExplorerModel) unfocusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Muted)
	s.Selected = s.Selected.
		Foreground(styles.Text).
		Background(lipgloss.Color("#333333")).
		Bold(false)
	return s
}

func (m ExplorerModel) panelHeight() int {
	return max(m.height/2-6, 6)
}

func (m *ExplorerModel) updateLayout() {
	if m.width <= 0 {
		return
	}
	m.buildTable()
	m.table.SetCursor(m.state.Selected)
}

// normalize folds width variants, strips diacritics and lowercases text for
// fuzzy matching.
func normalize(s string) string {
	t := transform.Chain(norm.NFKD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

// filterLeads keeps the leads whose text fields contain every word of query.
func filterLeads(leads []storage.StoredLead, query string) []storage.StoredLead {
	words := strings.Fields(normalize(query))
	if len(words) == 0 {
		return leads
	}
	var out []storage.StoredLead
	for _, l := range leads {
		haystack := normalize(strings.Join([]string{
			l.CompanyName, l.Industry, l.Address, l.WebsiteURL,
			l.SocialLinks, l.Catalog, l.Remarks,
		}, " "))
		match := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, l)
		}
	}
	return out
}

func (m *ExplorerModel) applyFilter() {
	m.filtered = filterLeads(m.leads, m.state.Filter)
	m.state.Reset()
	if len(m.filtered) == 0 {
		m.state.Selected = -1
	}
	m.buildTable()
	m.refreshSelection()
}

func (m ExplorerModel) View() string {
	if m.err != nil {
		return styles.ErrorText.Render(fmt.Sprintf("Error loading DB: %v", m.err))
	}

	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Explorer: %d leads from %d runs", len(m.leads), m.runs)))
	visible := m.state.Visible(len(m.filtered))
	if visible != len(m.leads) {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf(" (showing %d of %d)", visible, len(m.filtered))))
	}
	b.WriteString("\n\n")

	filterStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusFilter {
		filterStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(filterStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	b.WriteString("\n")

	b.WriteString(m.table.View())
	if visible < len(m.filtered) {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Secondary).
			Render(fmt.Sprintf("  n: show %d more", min(PageSize, len(m.filtered)-visible))))
	}
	b.WriteString("\n\n")

	detailW := max(m.width-2, 40)
	panelH := m.panelHeight()
	cardOuterW := detailW * 2 / 5
	sideOuterW := detailW - cardOuterW - 1

	cardInnerW := max(cardOuterW-4, 20)
	cardBox := styles.PanelLabel(m.focus == focusCard, "[1] Details") + "\n" +
		styles.Panel(m.focus == focusCard, cardOuterW-2, panelH).Render(m.viewCardPanel(cardInnerW, panelH))

	sideInnerW := max(sideOuterW-4, 20)
	var sideContent, sideTitle string
	if m.side == panelMap {
		mv := m.mapView
		mv.SetSize(sideInnerW, panelH)
		sideContent = mv.View()
		sideTitle = fmt.Sprintf("[3] Map (%d located)", mv.Plotted())
	} else {
		sideContent = m.viewJSONPanel(sideInnerW, panelH)
		sideTitle = "[2] JSON"
	}
	sideBox := styles.PanelLabel(m.focus == focusJSON, sideTitle) + "\n" +
		styles.Panel(m.focus == focusJSON, sideOuterW-2, panelH).Render(sideContent)

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cardBox, " ", sideBox))
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(m.notice))
		b.WriteString("\n")
	}

	var statusText string
	switch m.focus {
	case focusTable:
		statusText = "↑↓ navigate • n more • 1 details • 2 json • 3 map • / filter • e csv • J json • x xlsx • esc back"
	case focusFilter:
		statusText = "type to filter • esc back"
	case focusCard:
		statusText = "↑↓ scroll • esc back to table"
	case focusJSON:
		statusText = "↑↓ scroll • ←→ pan • c copy json • esc back to table"
	}
	b.WriteString(styles.StatusBar.Render(statusText))

	return b.String()
}

func (m ExplorerModel) viewCardPanel(w, h int) string {
	if len(m.cardLines) == 0 {
		return styles.Hint.Render("Select a lead\nto view details")
	}

	lines := m.cardLines
	scrollY := max(min(m.cardScrollY, len(lines)-h), 0)
	end := min(scrollY+h, len(lines))
	visible := lines[scrollY:end]

	var sb strings.Builder
	label := lipgloss.NewStyle().Foreground(styles.Muted)
	valStyle := lipgloss.NewStyle().Foreground(styles.Text)

	for i, line := range visible {
		switch {
		case scrollY+i == 0:
			sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Text).
				Render(truncate(line, w)))
		case strings.HasPrefix(line, "Website:") || strings.HasPrefix(line, "Maps:"):
			lbl, val, _ := strings.Cut(line, " ")
			sb.WriteString(label.Render(fmt.Sprintf("%-10s ", lbl)))
			sb.WriteString(styles.Link.Render(truncate(strings.TrimSpace(val), w-11)))
		case strings.HasPrefix(line, "Form:") && strings.HasSuffix(line, model.ContactFormPresent):
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(truncate(line, w)))
		default:
			sb.WriteString(valStyle.Render(truncate(line, w)))
		}
		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}

	if scrollY > 0 {
		sb.WriteString("\n")
		sb.WriteString(label.Render("  ▲ more above"))
	}
	if end < len(lines) {
		sb.WriteString("\n")
		sb.WriteString(label.Render("  ▼ more below"))
	}

	return sb.String()
}

func (m ExplorerModel) viewJSONPanel(w, h int) string {
	if len(m.jsonLines) == 0 {
		return styles.Hint.Render("Select a lead\nto view JSON")
	}

	lines := m.jsonLines
	jsonStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Secondary)
	strStyle := lipgloss.NewStyle().Foreground(styles.Success)

	scrollY := max(min(m.jsonScrollY, len(lines)-h), 0)
	end := min(scrollY+h, len(lines))
	visible := lines[scrollY:end]

	var sb strings.Builder
	for i, line := range visible {
		display := truncate(shift(line, m.jsonScrollX), w)

		trimmed := strings.TrimSpace(display)
		if colonIdx := strings.Index(display, "\":"); strings.HasPrefix(trimmed, "\"") && colonIdx > 0 {
			sb.WriteString(keyStyle.Render(display[:colonIdx+1]))
			sb.WriteString(strStyle.Render(display[colonIdx+1:]))
		} else {
			sb.WriteString(jsonStyle.Render(display))
		}

		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}

	if scrollY > 0 || end < len(lines) {
		sb.WriteString("\n")
		indicator := fmt.Sprintf("  [%d/%d]", scrollY+1, len(lines))
		if m.jsonScrollX > 0 {
			indicator += fmt.Sprintf(" ←%d", m.jsonScrollX)
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(indicator))
	}

	return sb.String()
}

func (m *ExplorerModel) copyToClipboard() {
	if m.jsonRaw == "" {
		return
	}
	if err := clipboard.WriteAll(m.jsonRaw); err != nil {
		m.notice = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.notice = "JSON copied to clipboard"
}

// truncate cuts s to width display cells, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// shift drops the first n runes of s.
func shift(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if n >= len(r) {
		return ""
	}
	return string(r[n:])
}

func (m *ExplorerModel) exportTo(f export.Format) {
	data := m.filtered
	if len(data) == 0 {
		data = m.leads
	}
	records := make([]model.LeadRecord, len(data))
	for i, l := range data {
		records[i] = l.LeadRecord
	}

	path := export.DefaultPath(m.dbPath, f)
	if err := export.ToFile(path, f, records); err != nil {
		m.notice = fmt.Sprintf("Export error: %v", err)
		return
	}
	m.notice = fmt.Sprintf("Exported %d leads to %s", len(records), path)
}
