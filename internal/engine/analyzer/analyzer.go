// Package analyzer classifies a lead's website: social profiles, contact
// form presence and catalog material.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rendis/leadtap/internal/model"
)

const (
	DefaultNavTimeout = 15 * time.Second
	remarkErrLen      = 50
	remarkPrefix      = "website analysis error: "
)

// Page is a page the analyzer can load a website into.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Links(ctx context.Context) ([]model.Link, error)
	Content(ctx context.Context) (string, error)
}

// NavigationError reports a website that could not be loaded.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigating to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

type Options struct {
	NavTimeout time.Duration
	Logger     *log.Logger
}

type Analyzer struct {
	navTimeout time.Duration
	logger     *log.Logger
}

func New(opts Options) *Analyzer {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = DefaultNavTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Analyzer{navTimeout: opts.NavTimeout, logger: opts.Logger}
}

// Analyze loads target into page and classifies it. Failures end up as
// remarks on the returned analysis; they are never returned as errors.
// The none sentinel and empty targets are skipped without navigating.
func (a *Analyzer) Analyze(ctx context.Context, page Page, target string) model.WebsiteAnalysis {
	var res model.WebsiteAnalysis
	if target == "" || target == model.None {
		return res
	}

	if err := a.navigate(ctx, page, target); err != nil {
		a.logger.Warn("website unreachable", "url", target, "err", err)
		res.AddRemark(remark(err))
		return res
	}

	links, err := page.Links(ctx)
	if err != nil {
		a.logger.Warn("link enumeration failed", "url", target, "err", err)
		res.AddRemark(remark(err))
		return res
	}
	content, err := page.Content(ctx)
	if err != nil {
		a.logger.Warn("content read failed", "url", target, "err", err)
		res.AddRemark(remark(err))
	}

	res = mergeRemarks(Classify(target, links, content), res.Remarks)
	a.logger.Debug("website analyzed",
		"url", target,
		"social", res.Socials(),
		"contact_form", res.HasContactForm,
		"catalog", res.Catalogs(),
	)
	return res
}

func (a *Analyzer) navigate(ctx context.Context, page Page, target string) error {
	navCtx, cancel := context.WithTimeout(ctx, a.navTimeout)
	defer cancel()
	if err := page.Navigate(navCtx, target); err != nil {
		return &NavigationError{URL: target, Err: err}
	}
	return nil
}

// Classify applies the social, contact form and catalog rules to an
// already loaded page.
func Classify(target string, links []model.Link, content string) model.WebsiteAnalysis {
	var res model.WebsiteAnalysis
	s := newSignals(target, links, content)

	for _, l := range links {
		if name, ok := socialPlatform(l.Href); ok {
			res.AddSocial(name)
		}
	}

	_, res.HasContactForm = classifyContact(s)

	for _, l := range s.links {
		if r, ok := classifyCatalog(l); ok {
			res.AddCatalog(r.kind)
		}
	}
	return res
}

func remark(err error) string {
	var nav *NavigationError
	msg := err.Error()
	if errors.As(err, &nav) {
		msg = nav.Err.Error()
	}
	return remarkPrefix + model.Truncate(msg, remarkErrLen)
}

func mergeRemarks(res model.WebsiteAnalysis, remarks []string) model.WebsiteAnalysis {
	for _, r := range remarks {
		res.AddRemark(r)
	}
	return res
}
