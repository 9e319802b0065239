package types

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// LatLon is a WGS84 position as the map surface reports it.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the position as an orb point (lon, lat order).
func (p LatLon) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Valid reports whether both coordinates are finite and in range.
func (p LatLon) Valid() bool {
	return isFinite(p.Lat) && isFinite(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lon >= -180 && p.Lon <= 180
}

// String returns a human-readable representation of the position
func (p LatLon) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// BoundingBox represents a geographic bounding box in WGS84 (EPSG:4326)
type BoundingBox struct {
	MinLon float64 `json:"minlon"` // Western edge (degrees)
	MinLat float64 `json:"minlat"` // Southern edge (degrees)
	MaxLon float64 `json:"maxlon"` // Eastern edge (degrees)
	MaxLat float64 `json:"maxlat"` // Northern edge (degrees)
}

// BoundingBoxFromBound converts an orb bound into a BoundingBox.
func BoundingBoxFromBound(b orb.Bound) BoundingBox {
	return BoundingBox{
		MinLon: b.Min.Lon(),
		MinLat: b.Min.Lat(),
		MaxLon: b.Max.Lon(),
		MaxLat: b.Max.Lat(),
	}
}

// Bound returns the box as an orb bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// Valid reports whether the box has finite, ordered edges.
func (b BoundingBox) Valid() bool {
	return isFinite(b.MinLon) && isFinite(b.MinLat) && isFinite(b.MaxLon) && isFinite(b.MaxLat) &&
		b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat
}

// ExpandByFraction pads every side by frac of the box's width/height.
func (b BoundingBox) ExpandByFraction(frac float64) BoundingBox {
	if frac <= 0 {
		return b
	}
	dLon := b.Width() * frac
	dLat := b.Height() * frac
	return BoundingBox{
		MinLon: b.MinLon - dLon,
		MinLat: b.MinLat - dLat,
		MaxLon: b.MaxLon + dLon,
		MaxLat: b.MaxLat + dLat,
	}
}

// String returns a human-readable representation of the bounding box
func (b BoundingBox) String() string {
	return fmt.Sprintf("bbox(%.6f,%.6f,%.6f,%.6f)", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// Center returns the center point of the bounding box
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Width returns the width of the bounding box in degrees
func (b BoundingBox) Width() float64 {
	return b.MaxLon - b.MinLon
}

// Height returns the height of the bounding box in degrees
func (b BoundingBox) Height() float64 {
	return b.MaxLat - b.MinLat
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
