// Package locator maps the semantic slots the pipeline reads from the
// directory UI to the structural selectors of one UI version.
package locator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rendis/leadtap/internal/engine/browser"
)

type Slot string

const (
	ResultEntry     Slot = "result-entry"
	ResultsPane     Slot = "results-pane"
	PrimaryCategory Slot = "primary-category-label"
	AddressControl  Slot = "address-control"
	PhoneControl    Slot = "phone-control"
	WebsiteLink     Slot = "website-link"
	ConsentButton   Slot = "consent-button"
)

// Table is the markup contract of one directory UI version.
type Table struct {
	Name      string
	Selectors map[Slot]string
	// LabelPrefixes are stripped from the accessible label of a slot,
	// e.g. "Address: " in front of the street address.
	LabelPrefixes map[Slot][]string
}

// MapsV1 covers the current Google Maps web UI in Japanese and English.
var MapsV1 = Table{
	Name: "maps-v1",
	Selectors: map[Slot]string{
		ResultEntry:     `a.hfpxzc`,
		ResultsPane:     `div[role="feed"]`,
		PrimaryCategory: `button.DkEaL`,
		AddressControl:  `button[data-item-id="address"]`,
		PhoneControl:    `button[data-item-id^="phone:tel:"]`,
		WebsiteLink:     `a[data-item-id="authority"]`,
		ConsentButton:   `form[action*="consent"] button[aria-label^="Accept"], button[aria-label="Accept all"], button[aria-label^="すべて同意"]`,
	},
	LabelPrefixes: map[Slot][]string{
		AddressControl: {"住所: ", "Address: "},
		PhoneControl:   {"電話番号: ", "Phone: "},
	},
}

// Querier is the part of a page the locator needs.
type Querier interface {
	QueryAll(ctx context.Context, selector string) ([]browser.Element, error)
}

type Locator struct {
	table Table
}

func New(t Table) *Locator {
	return &Locator{table: t}
}

// Default returns a locator over MapsV1.
func Default() *Locator {
	return New(MapsV1)
}

func (l *Locator) Selector(slot Slot) (string, error) {
	sel, ok := l.table.Selectors[slot]
	if !ok || sel == "" {
		return "", fmt.Errorf("locator %s: no selector for slot %q", l.table.Name, slot)
	}
	return sel, nil
}

// Find returns the first element filling slot. A nil element with a nil
// error means the slot is absent from the page.
func (l *Locator) Find(ctx context.Context, q Querier, slot Slot) (browser.Element, error) {
	all, err := l.FindAll(ctx, q, slot)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

// FindAll returns every element filling a list-type slot.
func (l *Locator) FindAll(ctx context.Context, q Querier, slot Slot) ([]browser.Element, error) {
	sel, err := l.Selector(slot)
	if err != nil {
		return nil, err
	}
	return q.QueryAll(ctx, sel)
}

// StripLabel removes the first matching label prefix of slot from v.
func (l *Locator) StripLabel(slot Slot, v string) string {
	v = strings.TrimSpace(v)
	for _, p := range l.table.LabelPrefixes[slot] {
		if rest, ok := strings.CutPrefix(v, p); ok {
			return strings.TrimSpace(rest)
		}
	}
	return v
}
