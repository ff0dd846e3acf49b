package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/leadtap/internal/engine/browser/browsertest"
	"github.com/rendis/leadtap/internal/model"
)

func TestAnalyzeSkipsNoneWithoutNavigating(t *testing.T) {
	page := &browsertest.Page{}
	a := New(Options{})

	for _, target := range []string{model.None, ""} {
		res := a.Analyze(context.Background(), page, target)
		assert.True(t, res.IsEmpty())
	}
	assert.Empty(t, page.Navigations())
}

func TestSocialDetectionIgnoresOrderAndDuplicates(t *testing.T) {
	orders := [][]model.Link{
		{{Href: "https://www.instagram.com/x"}, {Href: "https://twitter.com/y"}},
		{{Href: "https://twitter.com/y"}, {Href: "https://www.instagram.com/x"}, {Href: "https://twitter.com/y"}},
	}
	for _, links := range orders {
		page := &browsertest.Page{LinkList: links}
		res := New(Options{}).Analyze(context.Background(), page, "https://acme.example")
		assert.Equal(t, []string{"Instagram", "Twitter"}, res.Socials())
	}
}

func TestSocialPlatform(t *testing.T) {
	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"https://x.com/acme", "X", true},
		{"https://m.facebook.com/acme", "Facebook", true},
		{"https://page.line.me/acme", "LINE", true},
		{"https://youtu.be/abc", "YouTube", true},
		{"https://jp.linkedin.com/company/acme", "LinkedIn", true},
		{"https://notinstagram.com/acme", "", false},
		{"mailto:info@acme.example", "", false},
		{"/relative/path", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, ok := socialPlatform(tt.href)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogDetection(t *testing.T) {
	tests := []struct {
		name  string
		links []model.Link
		want  []string
	}{
		{
			name:  "electronic catalog text on html page",
			links: []model.Link{{Href: "https://acme.example/products/list", Text: "電子カタログ"}},
			want:  []string{"BOOK"},
		},
		{
			name:  "pdf target",
			links: []model.Link{{Href: "https://acme.example/catalog/2026.pdf", Text: "Download"}},
			want:  []string{"PDF"},
		},
		{
			name:  "viewer target",
			links: []model.Link{{Href: "https://acme.example/ebook/index.html", Text: "catalog"}},
			want:  []string{"BOOK"},
		},
		{
			name:  "indeterminate falls back to book",
			links: []model.Link{{Href: "https://acme.example/catalogue", Text: "Products"}},
			want:  []string{"BOOK"},
		},
		{
			name: "both kinds",
			links: []model.Link{
				{Href: "https://acme.example/files/catalog.pdf", Text: "カタログ"},
				{Href: "https://viewer.example/acme", Text: "デジタルカタログ"},
			},
			want: []string{"BOOK", "PDF"},
		},
		{
			name:  "no catalog keyword",
			links: []model.Link{{Href: "https://acme.example/price.pdf", Text: "Prices"}},
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify("https://acme.example", tt.links, "")
			assert.Equal(t, tt.want, res.Catalogs())
		})
	}
}

func TestContactFormTiers(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		links   []model.Link
		content string
		rule    string
		want    bool
	}{
		{
			name:   "url keyword without form markup",
			target: "https://acme.example/contact-us",
			rule:   "url-keyword",
			want:   true,
		},
		{
			name:    "form markup with submit",
			target:  "https://acme.example/",
			content: `<html><body><form action="/send"><input type="submit"></form></body></html>`,
			rule:    "form-markup",
			want:    true,
		},
		{
			name:    "form markup with localized submit",
			target:  "https://acme.example/",
			content: `<form method="post"><button>送信</button></form>`,
			rule:    "form-markup",
			want:    true,
		},
		{
			name:    "form markup without submit",
			target:  "https://acme.example/",
			content: `<form role="search"><input name="q"></form>`,
		},
		{
			name:   "link text keyword",
			target: "https://acme.example/",
			links:  []model.Link{{Href: "https://acme.example/page7", Text: "お問い合わせ"}},
			rule:   "link-keyword",
			want:   true,
		},
		{
			name:   "full width link text",
			target: "https://acme.example/",
			links:  []model.Link{{Href: "https://acme.example/p", Text: "ＣＯＮＴＡＣＴ"}},
			rule:   "link-keyword",
			want:   true,
		},
		{
			name:    "nothing",
			target:  "https://acme.example/",
			links:   []model.Link{{Href: "https://acme.example/about", Text: "About us"}},
			content: `<html><body><p>Welcome</p></body></html>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := classifyContact(newSignals(tt.target, tt.links, tt.content))
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.rule, rule)
			assert.Equal(t, tt.want, Classify(tt.target, tt.links, tt.content).HasContactForm)
		})
	}
}

func TestRuleOrder(t *testing.T) {
	var contact []string
	for _, r := range contactRules {
		contact = append(contact, r.name)
	}
	assert.Equal(t, []string{"url-keyword", "form-markup", "link-keyword"}, contact)

	var catalog []string
	for _, r := range catalogRules {
		catalog = append(catalog, r.name)
	}
	assert.Equal(t, []string{"document-download", "viewer", "indeterminate"}, catalog)
	assert.Equal(t, model.CatalogBook, catalogRules[len(catalogRules)-1].kind)
}

func TestAnalyzeNavigationFailureBecomesRemark(t *testing.T) {
	page := &browsertest.Page{
		NavigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED at https://acme.example and some more detail"),
		LinkList:    []model.Link{{Href: "https://twitter.com/acme"}},
	}

	res := New(Options{}).Analyze(context.Background(), page, "https://acme.example")

	require.Len(t, res.Remarks, 1)
	assert.True(t, strings.HasPrefix(res.Remarks[0], remarkPrefix))
	assert.Equal(t, remarkErrLen, len([]rune(strings.TrimPrefix(res.Remarks[0], remarkPrefix))))
	assert.Empty(t, res.Socials())
	assert.False(t, res.HasContactForm)
}

func TestAnalyzeNavigationTimeout(t *testing.T) {
	page := &browsertest.Page{
		NavigateFunc: func(ctx context.Context, _ string) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}

	start := time.Now()
	res := New(Options{NavTimeout: 20 * time.Millisecond}).Analyze(context.Background(), page, "https://slow.example")

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, res.Remarks, 1)
	assert.Contains(t, res.Remarks[0], "context deadline exceeded")
}

func TestAnalyzeFullPage(t *testing.T) {
	page := &browsertest.Page{
		LinkList: []model.Link{
			{Href: "https://www.facebook.com/acme", Text: "Facebook"},
			{Href: "https://acme.example/inquiry", Text: "Inquiries"},
			{Href: "https://acme.example/docs/catalog.pdf", Text: "Catalog"},
		},
		HTML: "<html></html>",
	}

	res := New(Options{}).Analyze(context.Background(), page, "https://acme.example")

	assert.Equal(t, []string{"https://acme.example"}, page.Navigations())
	assert.Equal(t, []string{"Facebook"}, res.Socials())
	assert.True(t, res.HasContactForm)
	assert.Equal(t, []string{"PDF"}, res.Catalogs())
	assert.Empty(t, res.Remarks)
}
