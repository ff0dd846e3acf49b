package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"
)

const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the Chrome instance backing a Session.
type Options struct {
	Headless  bool
	UserAgent string
	ProxyURL  string
	Lang      string
	Width     int
	Height    int
	Logger    *log.Logger
}

// Session owns one Chrome process. Pages opened from it share cookies and
// the consent state of the directory.
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *log.Logger

	mu    sync.Mutex
	pages []*page
}

// NewSession starts Chrome and returns once the browser is reachable. ctx
// limits the startup; the browser itself runs until Close.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 900
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.Lang != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", opts.Lang))
	}
	if opts.ProxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyURL))
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	allocCancel, browserCtx, browserCancel := newBrowserContext(ctx, allocOpts, logger)

	// ctx bounds the launch only. Once Chrome is up the session lives until
	// Close.
	abort := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	if !abort() {
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", context.Cause(ctx))
	}
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	logger.Debug("browser started", "headless", opts.Headless)

	return &Session{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// newBrowserContext builds the allocator and browser contexts. They keep
// ctx's values but not its deadline or cancellation.
func newBrowserContext(ctx context.Context, allocOpts []chromedp.ExecAllocatorOption, logger *log.Logger) (context.CancelFunc, context.Context, context.CancelFunc) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debugf(format, args...)
		}),
	)
	return allocCancel, browserCtx, browserCancel
}

// NewPage opens a new tab.
func (s *Session) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("opening tab: %w", err)
	}

	p := &page{ctx: tabCtx, cancel: cancel}
	s.mu.Lock()
	s.pages = append(s.pages, p)
	s.mu.Unlock()
	return p, nil
}

// Close closes every open tab and shuts the browser down.
func (s *Session) Close() error {
	s.mu.Lock()
	for _, p := range s.pages {
		p.cancel()
	}
	s.pages = nil
	s.mu.Unlock()

	s.browserCancel()
	s.allocCancel()
	return nil
}
