package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/engine/storage"
	"github.com/rendis/leadtap/internal/export"
	"github.com/rendis/leadtap/internal/model"
	"github.com/rendis/leadtap/internal/pipeline"
)

// openPipeline is swapped in tests.
var openPipeline = pipeline.Open

type ScanCmd struct {
	Keyword  string   `help:"Search keyword. Composed from --region, --industry and --extra when empty." short:"k"`
	Region   string   `help:"Region, e.g. Kyoto." short:"r"`
	Industry string   `help:"Industry, e.g. printing." short:"i"`
	Extra    string   `help:"Extra search terms."`
	Max      int      `help:"Maximum leads to collect (1-300)." default:"20" short:"n"`
	Output   string   `help:"Output directory for the database, log and exports." default:"./leads" short:"o"`
	Near     string   `help:"Bias the search towards this place."`
	Analyzer string   `help:"Website analyzer: browser or static. Defaults to LEADTAP_ANALYZER."`
	Headed   bool     `help:"Show the browser window."`
	Throttle string   `help:"Limit candidates per interval, e.g. 10/min."`
	Export   []string `help:"Formats written next to the database (csv, json, xlsx)." default:"csv,xlsx" sep:","`
	NoExport bool     `name:"no-export" help:"Skip writing exports next to the database."`
}

// formats resolves the auto-export formats.
func (c *ScanCmd) formats() ([]export.Format, error) {
	if c.NoExport {
		return nil, nil
	}
	var out []export.Format
	for _, s := range c.Export {
		f, err := export.ParseFormat(s)
		if err != nil {
			return nil, fmt.Errorf("--export: %w", err)
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// request builds the search request from the flags.
func (c *ScanCmd) request() (model.SearchRequest, error) {
	kw := strings.TrimSpace(c.Keyword)
	if kw == "" {
		if strings.TrimSpace(c.Region) == "" || strings.TrimSpace(c.Industry) == "" {
			return model.SearchRequest{}, fmt.Errorf("--keyword or both --region and --industry are required")
		}
		kw = model.ComposeKeyword(c.Region, c.Industry, c.Extra)
	}
	req := model.SearchRequest{Keyword: kw, MaxResults: c.Max}
	return req, req.Validate()
}

// apply overlays the flags on a copy of cfg.
func (c *ScanCmd) apply(cfg *config.Config) (*config.Config, error) {
	out := *cfg
	if c.Analyzer != "" {
		a := strings.ToLower(c.Analyzer)
		if a != config.AnalyzerBrowser && a != config.AnalyzerStatic {
			return nil, fmt.Errorf("--analyzer must be %s or %s, got %q", config.AnalyzerBrowser, config.AnalyzerStatic, c.Analyzer)
		}
		out.Analyzer = a
	}
	if c.Headed {
		out.Headless = false
	}
	if c.Throttle != "" {
		rl, err := config.ParseRateLimit(c.Throttle)
		if err != nil {
			return nil, fmt.Errorf("--throttle: %w", err)
		}
		out.Throttle = rl
	}
	return &out, nil
}

func (c *ScanCmd) Run(base *config.Config) error {
	req, err := c.request()
	if err != nil {
		return err
	}
	cfg, err := c.apply(base)
	if err != nil {
		return err
	}
	formats, err := c.formats()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.Output, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	ts := time.Now().Format("20060102_150405")
	baseName := fmt.Sprintf("leadtap_%s", ts)
	dbPath := filepath.Join(c.Output, baseName+".db")
	logPath := filepath.Join(c.Output, baseName+".log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := cfg.NewLogger(logFile, "scan")
	logger.Info("session start", "keyword", req.Keyword, "max", req.MaxResults,
		"near", c.Near, "analyzer", cfg.Analyzer, "throttle", cfg.Throttle.String())

	fmt.Fprintf(os.Stderr, "Log: %s\n", logPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(dbPath, cfg.PhoneRegion)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	startTime := time.Now()
	sink := newSpinnerSink(os.Stderr)
	sink.Start()

	p, err := openPipeline(ctx, cfg, pipeline.Options{Near: c.Near, Logger: logger})
	if err != nil {
		sink.Stop()
		logger.Error("pipeline open failed", "err", err)
		return err
	}

	// The run is recorded only once a browser is up.
	runID, err := store.BeginRun(req)
	if err != nil {
		p.Close()
		sink.Stop()
		return err
	}
	if p.Viewport != nil {
		logger.Info("viewport", "center", p.Viewport.String())
	}

	leads, runErr := p.Collect(ctx, req, sink)
	p.Close()
	sink.Stop()

	n, err := store.InsertLeads(runID, leads)
	if err != nil {
		return fmt.Errorf("storing leads: %w", err)
	}
	if err := store.FinishRun(runID); err != nil {
		return err
	}

	duration := time.Since(startTime).Truncate(time.Second)
	logger.Info("session end", "leads", n, "candidates", p.Stats.Candidates.Load(),
		"failed", p.Stats.Failed.Load(), "duration", duration, "err", runErr)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("collecting: %w", runErr)
	}

	fmt.Fprintf(os.Stderr, "\n")
	if errors.Is(runErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Interrupted, partial results kept\n")
	}
	fmt.Fprintf(os.Stderr, "Keyword:    %s\n", req.Keyword)
	fmt.Fprintf(os.Stderr, "Candidates: %d\n", p.Stats.Candidates.Load())
	fmt.Fprintf(os.Stderr, "Leads:      %d\n", n)
	fmt.Fprintf(os.Stderr, "Skipped:    %d\n", p.Stats.Failed.Load())
	fmt.Fprintf(os.Stderr, "Duration:   %s\n", duration)
	fmt.Fprintf(os.Stderr, "Run:        %s\n", runID)
	fmt.Fprintf(os.Stderr, "Database:   %s\n", dbPath)

	for _, f := range formats {
		path := export.DefaultPath(dbPath, f)
		if err := export.ToFile(path, f, leads); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%-12s%s\n", strings.ToUpper(string(f))+":", path)
	}
	return nil
}
