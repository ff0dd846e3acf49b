package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/rendis/leadtap/internal/model"
)

// Element is a handle to one node of a rendered page.
type Element interface {
	// Attr returns the attribute value and whether it is set.
	Attr(name string) (string, bool)
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	ScrollBy(ctx context.Context, dy int) error
}

// Page is one browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string) error
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Wheel dispatches a mouse wheel gesture over the viewport.
	Wheel(ctx context.Context, dy int) error
	Links(ctx context.Context) ([]model.Link, error)
	Content(ctx context.Context) (string, error)
	Close() error
}

const linksScript = `Array.from(document.querySelectorAll('a[href]')).map(a => ({
	href: a.href || '',
	text: (a.innerText || a.textContent || '').trim()
}))`

type page struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// scope derives a context that runs on this tab but honours the caller's
// deadline and cancellation.
func (p *page) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	c, cancel := context.WithCancel(p.ctx)
	if dl, ok := ctx.Deadline(); ok {
		var cancelDL context.CancelFunc
		c, cancelDL = context.WithDeadline(c, dl)
		prev := cancel
		cancel = func() { cancelDL(); prev() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

func (p *page) run(ctx context.Context, actions ...chromedp.Action) error {
	c, cancel := p.scope(ctx)
	defer cancel()
	return chromedp.Run(c, actions...)
}

func (p *page) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (p *page) WaitFor(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *page) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{page: p, node: n})
	}
	return out, nil
}

func (p *page) Wheel(ctx context.Context, dy int) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, 400, 400).
			WithDeltaX(0).
			WithDeltaY(float64(dy)).
			Do(ctx)
	}))
}

func (p *page) Links(ctx context.Context) ([]model.Link, error) {
	var links []model.Link
	if err := p.run(ctx, chromedp.Evaluate(linksScript, &links)); err != nil {
		return nil, fmt.Errorf("enumerating links: %w", err)
	}
	return links, nil
}

func (p *page) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return html, nil
}

func (p *page) Close() error {
	p.cancel()
	return nil
}

type element struct {
	page *page
	node *cdp.Node
}

func (e *element) Attr(name string) (string, bool) {
	return e.node.Attribute(name)
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.page.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.CallFunctionOnNode(ctx, e.node, `function() { return (this.innerText || '').trim(); }`, &text)
	}))
	if err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	return text, nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.page.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("clicking node: %w", err)
	}
	return nil
}

func (e *element) ScrollBy(ctx context.Context, dy int) error {
	return e.page.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.CallFunctionOnNode(ctx, e.node, `function(dy) { this.scrollBy(0, dy); }`, nil, dy)
	}))
}
