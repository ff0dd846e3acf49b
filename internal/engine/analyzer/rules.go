package analyzer

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"

	"github.com/rendis/leadtap/internal/model"
)

// socialDomains maps registrable domains to platform display names.
var socialDomains = map[string]string{
	"twitter.com":   "Twitter",
	"x.com":         "X",
	"facebook.com":  "Facebook",
	"instagram.com": "Instagram",
	"youtube.com":   "YouTube",
	"youtu.be":      "YouTube",
	"linkedin.com":  "LinkedIn",
	"line.me":       "LINE",
	"lin.ee":        "LINE",
}

var (
	contactKeywords = normalizeAll("contact", "inquiry", "form", "お問い合わせ", "お問合せ", "相談", "申込")
	submitKeywords  = normalizeAll("submit", "送信")
	catalogKeywords = normalizeAll("catalog", "catalogue", "カタログ", "電子カタログ", "デジタルカタログ", "冊子")
	viewerHrefHints = normalizeAll("book", "viewer", "ebook", "digital")
	viewerTextHints = normalizeAll("電子", "デジタル")
)

const formMarker = "<form"

// signals is everything the rules look at for one page.
type signals struct {
	url     string
	content string
	links   []normalizedLink
}

type normalizedLink struct {
	href string
	text string
}

func newSignals(target string, links []model.Link, content string) signals {
	s := signals{url: normalize(target), content: normalize(content)}
	for _, l := range links {
		s.links = append(s.links, normalizedLink{href: normalize(l.Href), text: normalize(l.Text)})
	}
	return s
}

type contactRule struct {
	name  string
	match func(s signals) bool
}

// contactRules are evaluated in order; the first match decides.
var contactRules = []contactRule{
	{
		name:  "url-keyword",
		match: func(s signals) bool { return containsAny(s.url, contactKeywords) },
	},
	{
		name: "form-markup",
		match: func(s signals) bool {
			return strings.Contains(s.content, formMarker) && containsAny(s.content, submitKeywords)
		},
	},
	{
		name: "link-keyword",
		match: func(s signals) bool {
			for _, l := range s.links {
				if containsAny(l.href, contactKeywords) || containsAny(l.text, contactKeywords) {
					return true
				}
			}
			return false
		},
	},
}

type catalogRule struct {
	name  string
	kind  model.CatalogType
	match func(l normalizedLink) bool
}

// catalogRules classify one catalog link; the first match decides.
// The last rule is the fallback for links whose format cannot be told
// from the link itself.
var catalogRules = []catalogRule{
	{
		name:  "document-download",
		kind:  model.CatalogPDF,
		match: func(l normalizedLink) bool { return strings.Contains(l.href, ".pdf") },
	},
	{
		name: "viewer",
		kind: model.CatalogBook,
		match: func(l normalizedLink) bool {
			return containsAny(l.href, viewerHrefHints) || containsAny(l.text, viewerTextHints)
		},
	},
	{
		name:  "indeterminate",
		kind:  model.CatalogBook,
		match: func(normalizedLink) bool { return true },
	},
}

// socialPlatform returns the platform name for a link target, if any.
func socialPlatform(href string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if name, ok := socialDomains[strings.TrimPrefix(host, "www.")]; ok {
		return name, true
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	name, ok := socialDomains[domain]
	return name, ok
}

func classifyContact(s signals) (string, bool) {
	for _, r := range contactRules {
		if r.match(s) {
			return r.name, true
		}
	}
	return "", false
}

func classifyCatalog(l normalizedLink) (catalogRule, bool) {
	if !containsAny(l.href, catalogKeywords) && !containsAny(l.text, catalogKeywords) {
		return catalogRule{}, false
	}
	for _, r := range catalogRules {
		if r.match(l) {
			return r, true
		}
	}
	return catalogRule{}, false
}

// normalize folds width variants and case so that keyword matching treats
// "ＣＯＮＴＡＣＴ" and "contact" alike.
func normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

func normalizeAll(words ...string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = normalize(w)
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
