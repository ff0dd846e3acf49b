package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	MinZoom = 10
	MaxZoom = 16

	// viewportPx is the approximate width of the results map in pixels.
	viewportPx = 1024
)

// Viewport is the map position a directory search is biased towards.
type Viewport struct {
	Center orb.Point
	Zoom   int
}

// String renders the viewport in the "@lat,lng,zoomz" form of map URLs.
func (v Viewport) String() string {
	return fmt.Sprintf("@%.6f,%.6f,%dz", v.Center.Lat(), v.Center.Lon(), v.Zoom)
}

// ZoomToSpanDegrees converts a zoom level to the span in degrees visible
// across the viewport.
func ZoomToSpanDegrees(zoom int) float64 {
	tileSpan := 360.0 / math.Pow(2, float64(zoom))
	return tileSpan * viewportPx / 256.0
}

// ViewportFor centres on b and picks the closest zoom that still shows all
// of it, clamped to [MinZoom, MaxZoom].
func ViewportFor(b orb.Bound) Viewport {
	center := b.Center()
	latSpan := b.Max.Lat() - b.Min.Lat()
	// Mercator stretches longitude away from the equator.
	lngSpan := (b.Max.Lon() - b.Min.Lon()) * math.Cos(center.Lat()*math.Pi/180.0)
	span := math.Max(latSpan, lngSpan)

	zoom := MaxZoom
	for zoom > MinZoom && ZoomToSpanDegrees(zoom) < span {
		zoom--
	}
	return Viewport{Center: center, Zoom: zoom}
}
