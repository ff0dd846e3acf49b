package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/tui/views"
)

type screen int

const (
	screenHome screen = iota
	screenSearch
	screenProgress
	screenExplorer
	screenFilePicker
	screenRecent
	screenCount
)

// App is the root bubbletea model. It owns one model per screen and routes
// navigation messages between them; everything else goes to the active one.
type App struct {
	cfg     *config.Config
	screens [screenCount]tea.Model
	current screen
	// browse keeps the explorer's filter and page window per database
	// across visits.
	browse map[string]*views.BrowseState
	width  int
	height int
}

func NewApp(cfg *config.Config, version string) App {
	a := App{
		cfg:     cfg,
		current: screenHome,
		browse:  make(map[string]*views.BrowseState),
	}
	a.screens[screenHome] = views.NewHomeModel(version, cfg)
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("leadtap"), a.screens[screenHome].Init())
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// A running collection handles ctrl+c itself so it can cancel first.
		if msg.String() == "ctrl+c" && a.current != screenProgress {
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case views.NavigateToHome:
		a.current = screenHome
		return a, nil
	case views.NavigateToSearch:
		return a.open(screenSearch, views.NewSearchModel())
	case views.NavigateToLoad:
		return a.open(screenFilePicker, views.NewFilePickerModel())
	case views.NavigateToRecent:
		return a.open(screenRecent, views.NewRecentModel(recentEntries()))
	case views.ForgetRecentMsg:
		_ = ForgetRecent(msg.Path)
		return a, nil
	case views.StartScanMsg:
		return a.open(screenProgress, views.NewProgressModel(msg, a.cfg))
	case views.NavigateToExplorer:
		_ = SaveRecent(msg.DBPath, msg.Keyword)
		return a.open(screenExplorer, views.NewExplorerModel(msg.DBPath, a.browseState(msg.DBPath)))
	}

	active := a.screens[a.current]
	if active == nil {
		return a, nil
	}
	var cmd tea.Cmd
	a.screens[a.current], cmd = active.Update(msg)
	return a, cmd
}

// open replaces the model of s and makes it active. The new model gets the
// current terminal size right after its Init.
func (a App) open(s screen, m tea.Model) (tea.Model, tea.Cmd) {
	a.screens[s] = m
	a.current = s
	w, h := a.width, a.height
	return a, tea.Batch(m.Init(), func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	})
}

func (a App) View() string {
	active := a.screens[a.current]
	if active == nil {
		return ""
	}
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Top, active.View())
}

// browseState returns the explorer state kept for a database across visits.
func (a App) browseState(dbPath string) *views.BrowseState {
	s, ok := a.browse[dbPath]
	if !ok {
		s = views.NewBrowseState()
		a.browse[dbPath] = s
	}
	return s
}

func recentEntries() []views.RecentEntry {
	var out []views.RecentEntry
	for _, e := range LoadRecent() {
		out = append(out, views.RecentEntry{Path: e.Path, Keyword: e.Keyword, OpenedAt: e.OpenedAt})
	}
	return out
}

// Run starts the TUI.
func Run(cfg *config.Config, version string) error {
	p := tea.NewProgram(NewApp(cfg, version), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
