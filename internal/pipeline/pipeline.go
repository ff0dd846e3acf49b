// Package pipeline assembles a ready-to-run collector from configuration.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/engine/analyzer"
	"github.com/rendis/leadtap/internal/engine/browser"
	"github.com/rendis/leadtap/internal/engine/collector"
	"github.com/rendis/leadtap/internal/engine/fetch"
	"github.com/rendis/leadtap/internal/engine/geo"
)

// Geocoder resolves a free-text region to its bounding box.
type Geocoder interface {
	Geocode(ctx context.Context, region string) (orb.Bound, error)
}

type Options struct {
	// Near biases the search towards a geocoded region. Empty means no bias.
	Near     string
	Geocoder Geocoder
	Stats    *collector.Stats
	Logger   *log.Logger
}

// Pipeline is a Collector bound to the browser session it drives.
type Pipeline struct {
	*collector.Collector

	Viewport *geo.Viewport
	Stats    *collector.Stats

	session *browser.Session
	static  *fetch.StaticPage
}

// Open starts Chrome and wires the collector with the configured analyzer.
// The caller must Close the pipeline.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.Geocoder == nil {
		opts.Geocoder = geo.NewGeocoder()
	}
	if opts.Stats == nil {
		opts.Stats = &collector.Stats{}
	}

	vp, err := ResolveViewport(ctx, opts.Geocoder, opts.Near)
	if err != nil {
		return nil, err
	}
	if vp != nil {
		logger.Info("search biased", "near", opts.Near, "viewport", vp.String())
	}

	session, err := browser.NewSession(ctx, browser.Options{
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
		ProxyURL:  cfg.ProxyURL,
		Lang:      cfg.Lang,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", collector.ErrSession, err)
	}

	p := &Pipeline{Viewport: vp, Stats: opts.Stats, session: session}

	copts := collector.Options{
		Analyzer: analyzer.New(analyzer.Options{NavTimeout: cfg.NavTimeout, Logger: logger}),
		Timings:  Timings(cfg),
		Viewport: vp,
		Lang:     cfg.Lang,
		Stats:    opts.Stats,
		Logger:   logger,
	}
	if cfg.Throttle.Enabled() {
		copts.Throttle = cfg.Throttle.Limiter()
	}
	if cfg.Analyzer == config.AnalyzerStatic {
		p.static = fetch.NewStaticPage(fetch.NewClient(fetch.Options{
			UserAgent: cfg.UserAgent,
			Lang:      cfg.Lang,
			ProxyURL:  cfg.ProxyURL,
			Timeout:   cfg.NavTimeout,
		}))
		copts.AnalysisPage = p.static
	}

	p.Collector = collector.New(session, copts)
	return p, nil
}

// Timings maps the configured waits onto collector timings.
func Timings(cfg *config.Config) *collector.Timings {
	t := collector.DefaultTimings()
	t.WaitTimeout = cfg.WaitTimeout
	t.ScrollSettle = cfg.ScrollSettle
	t.DetailSettle = cfg.DetailSettle
	t.ScrollAttempts = cfg.ScrollAttempts
	return &t
}

// ResolveViewport geocodes near into a search viewport. It returns nil when
// near is blank.
func ResolveViewport(ctx context.Context, g Geocoder, near string) (*geo.Viewport, error) {
	near = strings.TrimSpace(near)
	if near == "" {
		return nil, nil
	}
	bound, err := g.Geocode(ctx, near)
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", near, err)
	}
	vp := geo.ViewportFor(bound)
	return &vp, nil
}

func (p *Pipeline) Close() error {
	if p.static != nil {
		p.static.Close()
	}
	return p.session.Close()
}
