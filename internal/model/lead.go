package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sentinels used in place of missing values.
const (
	Unknown = "unknown"
	None    = "none"
)

// Display values for derived LeadRecord fields.
const (
	ContactFormPresent = "present"
	NoneOrUnknown      = "none/unknown"
)

const (
	MinResults = 1
	MaxResults = 300
)

var ErrInvalidRequest = errors.New("invalid search request")

// SearchRequest is one collection run's input. Keyword is already composed
// from region, industry and extra terms.
type SearchRequest struct {
	Keyword    string `json:"keyword"`
	MaxResults int    `json:"max_results"`
}

func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return fmt.Errorf("%w: keyword is empty", ErrInvalidRequest)
	}
	if r.MaxResults < MinResults || r.MaxResults > MaxResults {
		return fmt.Errorf("%w: max results %d outside [%d, %d]", ErrInvalidRequest, r.MaxResults, MinResults, MaxResults)
	}
	return nil
}

// ComposeKeyword joins the non-empty search terms with single spaces.
func ComposeKeyword(region, industry, extra string) string {
	var parts []string
	for _, p := range []string{region, industry, extra} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ProgressEvent is pushed to the caller's sink at each checkpoint.
// Total is 0 while the candidate count is not known yet.
type ProgressEvent struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Status  string `json:"status"`
}

// Link is one hyperlink enumerated from a rendered page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

type CatalogType string

const (
	CatalogPDF  CatalogType = "PDF"
	CatalogBook CatalogType = "BOOK"
)

// WebsiteAnalysis is the enrichment produced for one lead's website.
// The zero value is the empty default used when analysis is skipped.
type WebsiteAnalysis struct {
	SocialLinks    map[string]struct{}      `json:"-"`
	HasContactForm bool                     `json:"has_contact_form"`
	CatalogTypes   map[CatalogType]struct{} `json:"-"`
	Remarks        []string                 `json:"remarks,omitempty"`
}

func (a *WebsiteAnalysis) AddSocial(platform string) {
	if a.SocialLinks == nil {
		a.SocialLinks = make(map[string]struct{})
	}
	a.SocialLinks[platform] = struct{}{}
}

func (a *WebsiteAnalysis) AddCatalog(t CatalogType) {
	if a.CatalogTypes == nil {
		a.CatalogTypes = make(map[CatalogType]struct{})
	}
	a.CatalogTypes[t] = struct{}{}
}

func (a *WebsiteAnalysis) AddRemark(r string) {
	a.Remarks = append(a.Remarks, r)
}

// Socials returns the matched platform names sorted.
func (a WebsiteAnalysis) Socials() []string {
	out := make([]string, 0, len(a.SocialLinks))
	for s := range a.SocialLinks {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Catalogs returns the catalog classifications sorted.
func (a WebsiteAnalysis) Catalogs() []string {
	out := make([]string, 0, len(a.CatalogTypes))
	for c := range a.CatalogTypes {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// IsEmpty reports whether the analysis carries no signal at all.
func (a WebsiteAnalysis) IsEmpty() bool {
	return len(a.SocialLinks) == 0 && !a.HasContactForm && len(a.CatalogTypes) == 0 && len(a.Remarks) == 0
}

// Details are the base fields read from a candidate's detail panel.
type Details struct {
	Name       string
	Industry   string
	Address    string
	Phone      string
	WebsiteURL string
	MapsURL    string
	Lat        float64
	Lng        float64
}

// LeadRecord is one collected lead in display form.
type LeadRecord struct {
	CompanyName string    `json:"company_name"`
	Industry    string    `json:"industry"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	WebsiteURL  string    `json:"website_url"`
	ContactForm string    `json:"contact_form"`
	SocialLinks string    `json:"social_links"`
	Catalog     string    `json:"catalog"`
	Remarks     string    `json:"remarks"`
	CollectedAt time.Time `json:"collected_at"`
	MapsURL     string    `json:"maps_url,omitempty"`
	Lat         float64   `json:"lat,omitempty"`
	Lng         float64   `json:"lng,omitempty"`
}

// NewLeadRecord derives the display fields from the extracted details and
// the website analysis.
func NewLeadRecord(d Details, a WebsiteAnalysis, at time.Time) LeadRecord {
	rec := LeadRecord{
		CompanyName: orSentinel(d.Name, Unknown),
		Industry:    orSentinel(d.Industry, Unknown),
		Address:     orSentinel(d.Address, Unknown),
		Phone:       orSentinel(d.Phone, Unknown),
		WebsiteURL:  orSentinel(d.WebsiteURL, None),
		ContactForm: NoneOrUnknown,
		SocialLinks: None,
		Catalog:     NoneOrUnknown,
		Remarks:     strings.Join(a.Remarks, " "),
		CollectedAt: at,
		MapsURL:     d.MapsURL,
		Lat:         d.Lat,
		Lng:         d.Lng,
	}
	if a.HasContactForm {
		rec.ContactForm = ContactFormPresent
	}
	if s := a.Socials(); len(s) > 0 {
		rec.SocialLinks = strings.Join(s, ", ")
	}
	if c := a.Catalogs(); len(c) > 0 {
		rec.Catalog = strings.Join(c, ", ")
	}
	return rec
}

// CollectedDate is the run-local calendar date the lead was collected on.
func (r LeadRecord) CollectedDate() string {
	return r.CollectedAt.Format(time.DateOnly)
}

func orSentinel(v, sentinel string) string {
	if strings.TrimSpace(v) == "" {
		return sentinel
	}
	return v
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
