// Package collector drives the directory search and turns its results into
// lead records.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/rendis/leadtap/internal/engine/analyzer"
	"github.com/rendis/leadtap/internal/engine/browser"
	"github.com/rendis/leadtap/internal/engine/geo"
	"github.com/rendis/leadtap/internal/engine/locator"
	"github.com/rendis/leadtap/internal/model"
)

const failureReasonLen = 20

// ErrSession marks failures of the browser session itself. They abort
// the run.
var ErrSession = errors.New("browser session failure")

// Browser opens pages. *browser.Session satisfies it.
type Browser interface {
	NewPage(ctx context.Context) (browser.Page, error)
}

type Options struct {
	Locator  *locator.Locator
	Analyzer *analyzer.Analyzer
	// AnalysisPage replaces the second browser tab used for websites.
	AnalysisPage analyzer.Page
	Timings      *Timings
	// Viewport biases the search towards a map position.
	Viewport *geo.Viewport
	Lang     string
	// Throttle, when set, spaces out candidate processing.
	Throttle *rate.Limiter
	// Stats, when set, is updated live during the run.
	Stats  *Stats
	Logger *log.Logger
}

// Collector runs collections against one browser. Runs must not overlap:
// the browser's pages belong to a single run at a time.
type Collector struct {
	browser      Browser
	loc          *locator.Locator
	analyzer     *analyzer.Analyzer
	analysisPage analyzer.Page
	timings      Timings
	viewport     *geo.Viewport
	lang         string
	throttle     *rate.Limiter
	stats        *Stats
	logger       *log.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func New(b Browser, opts Options) *Collector {
	if opts.Locator == nil {
		opts.Locator = locator.Default()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Analyzer == nil {
		opts.Analyzer = analyzer.New(analyzer.Options{Logger: opts.Logger})
	}
	timings := DefaultTimings()
	if opts.Timings != nil {
		timings = *opts.Timings
	}
	if opts.Stats == nil {
		opts.Stats = &Stats{}
	}
	return &Collector{
		browser:      b,
		loc:          opts.Locator,
		analyzer:     opts.Analyzer,
		analysisPage: opts.AnalysisPage,
		timings:      timings,
		viewport:     opts.Viewport,
		lang:         opts.Lang,
		throttle:     opts.Throttle,
		stats:        opts.Stats,
		logger:       opts.Logger,
		sleep:        sleepCtx,
		now:          time.Now,
	}
}

type state int

const (
	stateIdle state = iota
	stateSearching
	stateLoading
	statePerItem
	stateDone
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSearching:
		return "searching"
	case stateLoading:
		return "loading"
	case statePerItem:
		return "per-item"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// run holds the state of one Collect call.
type run struct {
	*Collector
	req   model.SearchRequest
	sink  Sink
	state state
	out   []model.LeadRecord
}

// Collect searches the directory for req.Keyword and returns up to
// req.MaxResults leads in listing order.
//
// Per-item failures are reported through sink and skipped. Session
// failures are returned wrapped in ErrSession. When ctx is cancelled the
// leads collected so far are returned together with ctx.Err().
func (c *Collector) Collect(ctx context.Context, req model.SearchRequest, sink Sink) ([]model.LeadRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = Discard
	}
	r := &run{Collector: c, req: req, sink: sink, state: stateIdle}
	return r.execute(ctx)
}

func (r *run) execute(ctx context.Context) ([]model.LeadRecord, error) {
	start := time.Now()

	if err := r.enter(ctx, stateSearching); err != nil {
		return r.out, err
	}
	page, err := r.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: opening search page: %w", ErrSession, err)
	}
	defer page.Close()

	r.report(0, r.req.MaxResults, "searching for "+r.req.Keyword)
	found, err := r.search(ctx, page, r.req.Keyword)
	if err != nil {
		return nil, r.fatal(ctx, err)
	}
	if !found {
		r.report(0, r.req.MaxResults, "no results for "+r.req.Keyword)
		return r.finish(ctx, start)
	}

	if err := r.enter(ctx, stateLoading); err != nil {
		return r.out, err
	}
	cands, err := r.load(ctx, page, r.req.MaxResults)
	if err != nil {
		return nil, r.fatal(ctx, err)
	}
	n := len(cands)
	r.stats.Candidates.Store(int64(n))
	r.report(0, n, fmt.Sprintf("%d candidates found", n))
	if n == 0 {
		return r.finish(ctx, start)
	}

	analysisPage := r.analysisPage
	if analysisPage == nil {
		p, err := r.browser.NewPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: opening analysis page: %w", ErrSession, err)
		}
		defer p.Close()
		analysisPage = p
	}

	for i, cand := range cands {
		if err := r.enter(ctx, statePerItem); err != nil {
			return r.out, err
		}
		if r.throttle != nil {
			if err := r.throttle.Wait(ctx); err != nil {
				return r.out, ctx.Err()
			}
		}

		rec, err := r.processItem(ctx, page, analysisPage, i+1, n, cand)
		r.stats.Processed.Add(1)
		if err != nil {
			if ctx.Err() != nil {
				return r.out, ctx.Err()
			}
			r.stats.Failed.Add(1)
			r.logger.Warn("candidate failed", "index", i+1, "name", cand.name, "err", err)
			r.report(i+1, n, fmt.Sprintf("%s — failed: %s, skipping", cand.name, model.Truncate(err.Error(), failureReasonLen)))
			continue
		}
		r.out = append(r.out, rec)
		r.stats.Collected.Add(1)
	}

	return r.finish(ctx, start)
}

// processItem extracts and analyzes one candidate. Panics are turned into
// errors so one bad item cannot end the run.
func (r *run) processItem(ctx context.Context, page browser.Page, analysisPage analyzer.Page, i, n int, cand candidate) (rec model.LeadRecord, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	r.report(i, n, cand.name+" — fetching basic info")
	details, err := r.extract(ctx, page, cand)
	if err != nil {
		return model.LeadRecord{}, err
	}

	var analysis model.WebsiteAnalysis
	if details.WebsiteURL != model.None {
		r.report(i, n, cand.name+" — analyzing website")
		analysis = r.analyzer.Analyze(ctx, analysisPage, details.WebsiteURL)
		r.stats.Analyzed.Add(1)
	}

	rec = model.NewLeadRecord(details, analysis, r.now())
	r.logger.Info("lead collected", "index", i, "name", rec.CompanyName, "website", rec.WebsiteURL)
	return rec, nil
}

func (r *run) finish(ctx context.Context, start time.Time) ([]model.LeadRecord, error) {
	if err := r.enter(ctx, stateDone); err != nil {
		return r.out, err
	}
	n := len(r.out)
	r.report(n, n, "collection complete")
	r.logger.Info("collection complete",
		"keyword", r.req.Keyword,
		"leads", n,
		"failed", r.stats.Failed.Load(),
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
	return r.out, nil
}

// enter moves the run to next unless ctx is done.
func (r *run) enter(ctx context.Context, next state) error {
	if err := ctx.Err(); err != nil {
		r.logger.Info("collection cancelled", "state", r.state, "leads", len(r.out))
		return err
	}
	r.logger.Debug("state", "from", r.state, "to", next)
	r.state = next
	return nil
}

func (r *run) fatal(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %w", ErrSession, err)
}

// report forwards an event to the sink. A panicking sink is logged and
// otherwise ignored.
func (r *run) report(current, total int, status string) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("progress sink panicked", "status", status, "panic", p)
		}
	}()
	r.sink.Report(model.ProgressEvent{Current: current, Total: total, Status: status})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
