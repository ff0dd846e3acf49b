package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rendis/leadtap/internal/engine/browser"
	"github.com/rendis/leadtap/internal/engine/geo"
	"github.com/rendis/leadtap/internal/engine/locator"
	"github.com/rendis/leadtap/internal/model"
)

const searchBaseURL = "https://www.google.com/maps/search/"

// Timings are the waits of the search and detail protocol.
type Timings struct {
	// WaitTimeout bounds the wait for the first result entries.
	WaitTimeout    time.Duration
	ScrollSettle   time.Duration
	DetailSettle   time.Duration
	ScrollAttempts int
	ScrollDelta    int
}

func DefaultTimings() Timings {
	return Timings{
		WaitTimeout:    10 * time.Second,
		ScrollSettle:   2 * time.Second,
		DetailSettle:   1500 * time.Millisecond,
		ScrollAttempts: 15,
		ScrollDelta:    5000,
	}
}

// SearchURL builds the directory search URL for keyword, optionally biased
// towards a viewport and pinned to an interface language.
func SearchURL(keyword string, vp *geo.Viewport, lang string) string {
	u := searchBaseURL + url.PathEscape(strings.TrimSpace(keyword))
	if vp != nil {
		u += "/" + vp.String()
	}
	if lang != "" {
		u += "?hl=" + url.QueryEscape(lang)
	}
	return u
}

// candidate is a rendered result entry not yet processed.
type candidate struct {
	el   browser.Element
	name string
	href string
}

func newCandidate(el browser.Element) candidate {
	name, _ := el.Attr("aria-label")
	href, _ := el.Attr("href")
	name = strings.TrimSpace(name)
	if name == "" {
		name = model.Unknown
	}
	return candidate{el: el, name: name, href: href}
}

// search opens the result list for keyword. It reports false when no
// result entry shows up within the wait window.
func (c *Collector) search(ctx context.Context, page browser.Page, keyword string) (bool, error) {
	target := SearchURL(keyword, c.viewport, c.lang)
	c.logger.Debug("searching", "url", target)
	if err := page.Navigate(ctx, target); err != nil {
		return false, fmt.Errorf("opening search: %w", err)
	}

	if err := c.dismissConsent(ctx, page); err != nil {
		return false, err
	}

	entrySel, err := c.loc.Selector(locator.ResultEntry)
	if err != nil {
		return false, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, c.timings.WaitTimeout)
	defer cancel()
	if err := page.WaitFor(waitCtx, entrySel); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.logger.Info("no result entries", "keyword", keyword, "err", err)
		return false, nil
	}
	return true, nil
}

// dismissConsent accepts the cookie interstitial some regions get before
// the directory renders.
func (c *Collector) dismissConsent(ctx context.Context, page browser.Page) error {
	btn, err := c.loc.Find(ctx, page, locator.ConsentButton)
	if err != nil || btn == nil {
		// A table without a consent slot is fine.
		return ctx.Err()
	}
	if err := btn.Click(ctx); err != nil {
		c.logger.Warn("consent click failed", "err", err)
		return ctx.Err()
	}
	c.logger.Debug("consent dismissed")
	return c.sleep(ctx, c.timings.DetailSettle)
}

// load scrolls the result pane until max entries are rendered or the
// scroll budget runs out, and returns at most max candidates in listing
// order.
func (c *Collector) load(ctx context.Context, page browser.Page, max int) ([]candidate, error) {
	var entries []browser.Element
	for attempt := 0; ; attempt++ {
		var err error
		entries, err = c.loc.FindAll(ctx, page, locator.ResultEntry)
		if err != nil {
			return nil, fmt.Errorf("counting results: %w", err)
		}
		if len(entries) >= max || attempt >= c.timings.ScrollAttempts {
			c.logger.Debug("result list loaded", "rendered", len(entries), "scrolls", attempt)
			break
		}
		if err := c.scroll(ctx, page); err != nil {
			return nil, err
		}
		if err := c.sleep(ctx, c.timings.ScrollSettle); err != nil {
			return nil, err
		}
	}

	if len(entries) > max {
		entries = entries[:max]
	}
	out := make([]candidate, 0, len(entries))
	for _, el := range entries {
		out = append(out, newCandidate(el))
	}
	return out, nil
}

// scroll scrolls the results pane, or the whole viewport when the pane
// cannot be located.
func (c *Collector) scroll(ctx context.Context, page browser.Page) error {
	pane, err := c.loc.Find(ctx, page, locator.ResultsPane)
	if err == nil && pane != nil {
		if err = pane.ScrollBy(ctx, c.timings.ScrollDelta); err == nil {
			return nil
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		c.logger.Debug("pane scroll unavailable, using wheel", "err", err)
	}
	if err := page.Wheel(ctx, c.timings.ScrollDelta); err != nil {
		return fmt.Errorf("scrolling results: %w", err)
	}
	return nil
}
