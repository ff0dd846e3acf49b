package collector

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rendis/leadtap/internal/engine/browser"
	"github.com/rendis/leadtap/internal/engine/locator"
	"github.com/rendis/leadtap/internal/model"
)

// Place links carry the coordinates as "!3d<lat>!4d<lng>".
var placeCoords = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)

// extract opens the candidate's detail panel and reads its fields. Absent
// controls yield sentinels; activation and read failures are returned.
func (c *Collector) extract(ctx context.Context, page browser.Page, cand candidate) (model.Details, error) {
	d := model.Details{
		Name:       cand.name,
		Industry:   model.Unknown,
		Address:    model.Unknown,
		Phone:      model.Unknown,
		WebsiteURL: model.None,
		MapsURL:    cand.href,
	}
	d.Lat, d.Lng = parseCoords(cand.href)

	if err := cand.el.Click(ctx); err != nil {
		return d, fmt.Errorf("activating candidate: %w", err)
	}
	if err := c.sleep(ctx, c.timings.DetailSettle); err != nil {
		return d, err
	}

	if el, err := c.loc.Find(ctx, page, locator.PrimaryCategory); err != nil {
		return d, fmt.Errorf("locating category: %w", err)
	} else if el != nil {
		text, err := el.Text(ctx)
		if err != nil {
			return d, fmt.Errorf("reading category: %w", err)
		}
		if text = strings.TrimSpace(text); text != "" {
			d.Industry = text
		}
	}

	var err error
	if d.Address, err = c.labelOf(ctx, page, locator.AddressControl, model.Unknown); err != nil {
		return d, err
	}
	if d.Phone, err = c.labelOf(ctx, page, locator.PhoneControl, model.Unknown); err != nil {
		return d, err
	}

	if el, err := c.loc.Find(ctx, page, locator.WebsiteLink); err != nil {
		return d, fmt.Errorf("locating website: %w", err)
	} else if el != nil {
		if href, ok := el.Attr("href"); ok && strings.TrimSpace(href) != "" {
			d.WebsiteURL = strings.TrimSpace(href)
		}
	}
	return d, nil
}

// labelOf reads the accessible label of slot with its prefix stripped.
func (c *Collector) labelOf(ctx context.Context, page browser.Page, slot locator.Slot, fallback string) (string, error) {
	el, err := c.loc.Find(ctx, page, slot)
	if err != nil {
		return fallback, fmt.Errorf("locating %s: %w", slot, err)
	}
	if el == nil {
		return fallback, nil
	}
	label, ok := el.Attr("aria-label")
	if !ok {
		return fallback, nil
	}
	if v := c.loc.StripLabel(slot, label); v != "" {
		return v, nil
	}
	return fallback, nil
}

func parseCoords(href string) (lat, lng float64) {
	m := placeCoords.FindStringSubmatch(href)
	if m == nil {
		return 0, 0
	}
	lat, errLat := strconv.ParseFloat(m[1], 64)
	lng, errLng := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLng != nil {
		return 0, 0
	}
	return lat, lng
}
