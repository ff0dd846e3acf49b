package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"
)

const nominatimURL = "https://nominatim.openstreetmap.org/search"

type nominatimResult struct {
	BoundingBox []string `json:"boundingbox"` // [minLat, maxLat, minLng, maxLng]
	DisplayName string   `json:"display_name"`
}

// Geocoder resolves free-text regions through the OSM Nominatim API.
type Geocoder struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewGeocoder() *Geocoder {
	return &Geocoder{
		BaseURL:   nominatimURL,
		UserAgent: "leadtap/0.1 (lead collector)",
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Geocode returns the bounding box of region.
func (g *Geocoder) Geocode(ctx context.Context, region string) (orb.Bound, error) {
	u := g.BaseURL + "?" + url.Values{
		"q":      {region},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return orb.Bound{}, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return orb.Bound{}, fmt.Errorf("decoding geocoding response: %w", err)
	}
	if len(results) == 0 {
		return orb.Bound{}, fmt.Errorf("region %q not found", region)
	}

	bb := results[0].BoundingBox
	if len(bb) < 4 {
		return orb.Bound{}, fmt.Errorf("invalid bounding box from geocoder")
	}

	var v [4]float64
	for i := range v {
		if v[i], err = strconv.ParseFloat(bb[i], 64); err != nil {
			return orb.Bound{}, fmt.Errorf("parsing bounding box: %w", err)
		}
	}

	// orb points are [lng, lat]
	return orb.Bound{
		Min: orb.Point{v[2], v[0]},
		Max: orb.Point{v[3], v[1]},
	}, nil
}
