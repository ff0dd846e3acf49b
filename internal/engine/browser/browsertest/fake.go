// Package browsertest provides in-memory browser pages for tests.
package browsertest

import (
	"context"
	"sync"

	"github.com/rendis/leadtap/internal/engine/browser"
	"github.com/rendis/leadtap/internal/model"
)

// Element is a scripted browser.Element.
type Element struct {
	Attrs     map[string]string
	TextValue string
	TextErr   error
	ClickErr  error
	// OnClick and OnScroll run after the call is recorded.
	OnClick  func()
	OnScroll func(dy int)

	mu      sync.Mutex
	clicks  int
	scrolls int
}

func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.TextValue, e.TextErr
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	e.clicks++
	e.mu.Unlock()
	if e.ClickErr != nil {
		return e.ClickErr
	}
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) ScrollBy(ctx context.Context, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	e.scrolls++
	e.mu.Unlock()
	if e.OnScroll != nil {
		e.OnScroll(dy)
	}
	return nil
}

func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *Element) Scrolls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scrolls
}

// Page is a scripted browser.Page. Static fields answer queries unless the
// matching func hook is set.
type Page struct {
	Elements map[string][]browser.Element
	LinkList []model.Link
	HTML     string

	NavigateErr error
	WaitErr     map[string]error

	QueryFunc    func(selector string) ([]browser.Element, error)
	NavigateFunc func(ctx context.Context, url string) error
	OnWheel      func(dy int)

	mu          sync.Mutex
	navigations []string
	wheels      int
	closed      bool
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	p.mu.Unlock()
	if p.NavigateFunc != nil {
		return p.NavigateFunc(ctx, url)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.NavigateErr
}

func (p *Page) WaitFor(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := p.WaitErr[selector]; ok {
		return err
	}
	return nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.QueryFunc != nil {
		return p.QueryFunc(selector)
	}
	return p.Elements[selector], nil
}

func (p *Page) Wheel(ctx context.Context, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.wheels++
	p.mu.Unlock()
	if p.OnWheel != nil {
		p.OnWheel(dy)
	}
	return nil
}

func (p *Page) Links(ctx context.Context) ([]model.Link, error) {
	return p.LinkList, ctx.Err()
}

func (p *Page) Content(ctx context.Context) (string, error) {
	return p.HTML, ctx.Err()
}

func (p *Page) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

func (p *Page) Wheels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wheels
}

func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var (
	_ browser.Page    = (*Page)(nil)
	_ browser.Element = (*Element)(nil)
)
