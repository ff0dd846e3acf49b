package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rendis/leadtap/internal/model"
)

var errNotLoaded = errors.New("no document loaded")

// StaticPage is a page backed by a plain HTTP fetch. Scripts never run,
// so links injected client-side are not seen.
type StaticPage struct {
	client *Client
	doc    *Response
}

func NewStaticPage(c *Client) *StaticPage {
	return &StaticPage{client: c}
}

func (p *StaticPage) Navigate(ctx context.Context, rawURL string) error {
	p.doc = nil
	resp, err := p.client.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	p.doc = resp
	return nil
}

// Links returns every anchor with an href, resolved against the final URL.
func (p *StaticPage) Links(ctx context.Context) ([]model.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.doc == nil {
		return nil, errNotLoaded
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.doc.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	base := p.doc.URL
	if b, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := base.Parse(b); err == nil {
			base = u
		}
	}

	var links []model.Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		links = append(links, model.Link{
			Href: resolve(base, href),
			Text: strings.Join(strings.Fields(s.Text()), " "),
		})
	})
	return links, nil
}

func (p *StaticPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.doc == nil {
		return "", errNotLoaded
	}
	return string(p.doc.Body), nil
}

func (p *StaticPage) Close() error {
	p.doc = nil
	return nil
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	u, err := base.Parse(href)
	if err != nil {
		return href
	}
	return u.String()
}
