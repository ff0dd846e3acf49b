package views

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/engine/collector"
	"github.com/rendis/leadtap/internal/engine/storage"
	"github.com/rendis/leadtap/internal/model"
	"github.com/rendis/leadtap/internal/pipeline"
	"github.com/rendis/leadtap/internal/tui/styles"
)

// sharedState holds data shared between the collection goroutine and TUI.
// Lives behind a pointer so it survives bubbletea's value copies.
type sharedState struct {
	mu     sync.Mutex
	stats  *collector.Stats
	cancel context.CancelFunc
}

// openPipeline is swapped in tests.
var openPipeline = pipeline.Open

// ProgressModel follows one collection run.
type ProgressModel struct {
	scan        StartScanMsg
	req         model.SearchRequest
	cfg         config.Config
	progress    progress.Model
	startTime   time.Time
	last        model.ProgressEvent
	events      chan model.ProgressEvent
	done        bool
	confirmQuit bool
	err         error
	leads       int
	runID       uuid.UUID
	dbPath      string
	logPath     string
	width       int
	height      int
	shared      *sharedState
}

// Messages
type progressTickMsg time.Time

type progressEventMsg model.ProgressEvent

type collectCompleteMsg struct {
	RunID uuid.UUID
	Leads int
	Err   error
}

func NewProgressModel(msg StartScanMsg, cfg *config.Config) ProgressModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)

	c := *cfg
	if msg.Analyzer != "" {
		c.Analyzer = msg.Analyzer
	}

	ts := time.Now().Format("20060102_150405")
	baseName := fmt.Sprintf("leadtap_%s", ts)

	return ProgressModel{
		scan:      msg,
		req:       model.SearchRequest{Keyword: msg.Keyword(), MaxResults: msg.MaxResults},
		cfg:       c,
		progress:  p,
		startTime: time.Now(),
		events:    make(chan model.ProgressEvent, 64),
		dbPath:    filepath.Join(msg.Output, baseName+".db"),
		logPath:   filepath.Join(msg.Output, baseName+".log"),
		shared:    &sharedState{stats: &collector.Stats{}},
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(
		m.startCollecting(),
		waitForEvent(m.events),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

// waitForEvent delivers the next progress event. A closed channel yields a
// nil message, which bubbletea drops.
func waitForEvent(ch <-chan model.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return progressEventMsg(e)
	}
}

func (m ProgressModel) startCollecting() tea.Cmd {
	shared := m.shared
	cfg := m.cfg
	req := m.req
	scan := m.scan
	events := m.events
	dbPath := m.dbPath
	logPath := m.logPath

	return func() tea.Msg {
		defer close(events)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sink := collector.NewChannelSink(events)
		shared.mu.Lock()
		shared.cancel = cancel
		stats := shared.stats
		shared.mu.Unlock()

		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return collectCompleteMsg{Err: err}
		}

		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return collectCompleteMsg{Err: err}
		}
		defer logFile.Close()
		logger := cfg.NewLogger(logFile, "tui")
		logger.Info("session start", "keyword", req.Keyword, "max", req.MaxResults,
			"near", scan.Near, "analyzer", cfg.Analyzer)

		store, err := storage.NewStore(dbPath, cfg.PhoneRegion)
		if err != nil {
			return collectCompleteMsg{Err: err}
		}
		defer store.Close()

		p, err := openPipeline(ctx, &cfg, pipeline.Options{
			Near:   scan.Near,
			Stats:  stats,
			Logger: logger,
		})
		if err != nil {
			logger.Error("pipeline open failed", "err", err)
			return collectCompleteMsg{Err: err}
		}
		defer p.Close()

		runID, err := store.BeginRun(req)
		if err != nil {
			return collectCompleteMsg{Err: err}
		}

		leads, runErr := p.Collect(ctx, req, sink)

		// Partial results of a cancelled run are kept.
		n, err := store.InsertLeads(runID, leads)
		if err != nil {
			logger.Error("storing leads failed", "err", err)
			if runErr == nil {
				runErr = err
			}
		}
		if err := store.FinishRun(runID); err != nil {
			logger.Error("finishing run failed", "err", err)
		}
		logger.Info("session end", "leads", n, "failed", stats.Failed.Load(),
			"dropped_events", sink.Dropped(), "err", runErr)

		return collectCompleteMsg{RunID: runID, Leads: n, Err: runErr}
	}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if cancel := m.shared.getCancel(); cancel != nil {
				cancel()
			}
			return m, tea.Quit
		case "esc":
			if m.done {
				return m, m.explore()
			}
			if m.confirmQuit {
				// Second esc: cancel; the run returns what it has so far.
				if cancel := m.shared.getCancel(); cancel != nil {
					cancel()
				}
				m.confirmQuit = false
				return m, nil
			}
			m.confirmQuit = true
			return m, nil
		case "enter":
			if m.done {
				return m, m.explore()
			}
			if m.confirmQuit {
				m.confirmQuit = false
				return m, nil
			}
		}
		if m.confirmQuit {
			m.confirmQuit = false
		}
	case progressEventMsg:
		m.last = model.ProgressEvent(msg)
		return m, waitForEvent(m.events)
	case progressTickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	case collectCompleteMsg:
		m.done = true
		m.err = msg.Err
		m.leads = msg.Leads
		m.runID = msg.RunID
		return m, nil
	}

	var cmd tea.Cmd
	var pModel tea.Model
	pModel, cmd = m.progress.Update(msg)
	m.progress = pModel.(progress.Model)
	return m, cmd
}

func (m ProgressModel) explore() tea.Cmd {
	nav := NavigateToExplorer{DBPath: m.dbPath, Keyword: m.req.Keyword}
	return func() tea.Msg { return nav }
}

// fraction is the share of candidates processed so far.
func (m ProgressModel) fraction() float64 {
	if m.last.Total <= 0 {
		if m.done {
			return 1
		}
		return 0
	}
	return float64(m.last.Current) / float64(m.last.Total)
}

func (m ProgressModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Collecting: %q", m.req.Keyword)
	if m.scan.Near != "" {
		title += " near " + m.scan.Near
	}
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n\n")

	statsBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(30).
		Render(m.renderStats())
	b.WriteString(statsBox)
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(m.fraction()))
	b.WriteString("\n")
	if m.last.Status != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Secondary).Render(m.last.Status))
	}
	b.WriteString("\n\n")

	switch {
	case m.done:
		if m.err != nil && !errors.Is(m.err, context.Canceled) {
			b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		if errors.Is(m.err, context.Canceled) {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Bold(true).
				Render(fmt.Sprintf("Stopped. %d leads kept", m.leads)))
		} else if m.err == nil {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Bold(true).
				Render(fmt.Sprintf("Complete! %d leads collected", m.leads)))
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf("Database: %s", m.dbPath)))
		if m.runID != uuid.Nil {
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
				Render(fmt.Sprintf("Run:      %s", m.runID)))
		}
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("enter explore leads • esc explore leads • ctrl+c quit"))
	case m.confirmQuit:
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop the run and keep the leads so far"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
	default:
		b.WriteString(styles.StatusBar.Render("esc stop • ctrl+c quit"))
	}

	return b.String()
}

func (m ProgressModel) renderStats() string {
	var sb strings.Builder
	elapsed := time.Since(m.startTime).Truncate(time.Second)

	stats := m.shared.getStats()
	candidates := stats.Candidates.Load()
	processed := stats.Processed.Load()
	collected := stats.Collected.Load()
	failed := stats.Failed.Load()
	analyzed := stats.Analyzed.Load()

	statLabel := lipgloss.NewStyle().Foreground(styles.Muted).Width(12)
	statVal := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)

	row := func(label string, value string) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(statVal.Render(value))
		sb.WriteString("\n")
	}

	row("Candidates:", fmt.Sprintf("%d/%d", candidates, m.req.MaxResults))
	row("Processed:", fmt.Sprintf("%d", processed))
	row("Collected:", fmt.Sprintf("%d", collected))
	row("Websites:", fmt.Sprintf("%d", analyzed))

	errStyle := statVal
	if failed > 0 {
		errStyle = lipgloss.NewStyle().Foreground(styles.Error).Bold(true)
	}
	sb.WriteString(statLabel.Render("Skipped:"))
	sb.WriteString(errStyle.Render(fmt.Sprintf("%d", failed)))
	sb.WriteString("\n")

	row("Elapsed:", elapsed.String())

	if processed > 0 && candidates > 0 && !m.done {
		rate := float64(processed) / elapsed.Seconds()
		remaining := float64(candidates-processed) / rate
		eta := time.Duration(remaining * float64(time.Second)).Truncate(time.Second)
		row("ETA:", "~"+eta.String())
	}

	return sb.String()
}

func (s *sharedState) getCancel() context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel
}

func (s *sharedState) getStats() *collector.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// NavigateToExplorer signals transition to explorer view.
type NavigateToExplorer struct {
	DBPath  string
	Keyword string
}
