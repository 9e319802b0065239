// Package tile maps positions onto Web Mercator tiles. The renderer uses it
// to bucket settlements into cluster cells and to estimate the zoom a
// fitted viewport ends up at.
package tile

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Size is the pixel edge of one tile.
const Size = 256

// MaxZoom is the deepest zoom any basemap offers.
const MaxZoom = 20

// Coords represents a tile coordinate in the Web Mercator tile system (z/x/y)
type Coords struct {
	Z uint32 // Zoom level
	X uint32 // X coordinate (column)
	Y uint32 // Y coordinate (row)
}

// At returns the tile containing p at zoom z.
func At(p orb.Point, z uint32) Coords {
	t := maptile.At(p, maptile.Zoom(z))
	return Coords{Z: uint32(t.Z), X: t.X, Y: t.Y}
}

// String returns the tile coordinate as a string in format "z{zoom}_x{x}_y{y}"
func (c Coords) String() string {
	return fmt.Sprintf("z%d_x%d_y%d", c.Z, c.X, c.Y)
}

// Tile returns the maptile.Tile for this coordinate
func (c Coords) Tile() maptile.Tile {
	return maptile.New(c.X, c.Y, maptile.Zoom(c.Z))
}

// Bounds returns the geographic bounding box for this tile in WGS84
func (c Coords) Bounds() types.BoundingBox {
	return types.BoundingBoxFromBound(c.Tile().Bound())
}

// Center returns the center point of the tile in WGS84 (lon, lat)
func (c Coords) Center() orb.Point {
	return c.Tile().Bound().Center()
}

// ParseCoords parses a tile string like "z13_x4297_y2754" into Coords
func ParseCoords(s string) (Coords, error) {
	var c Coords
	_, err := fmt.Sscanf(s, "z%d_x%d_y%d", &c.Z, &c.X, &c.Y)
	if err != nil {
		return c, fmt.Errorf("invalid tile coordinate format: %s", s)
	}
	return c, nil
}

// ZoomForBounds returns the deepest whole zoom at which bounds fits into a
// viewport of widthPx × heightPx, clamped to [0, maxZoom].
func ZoomForBounds(b types.BoundingBox, widthPx, heightPx int, maxZoom uint32) uint32 {
	if !b.Valid() || widthPx <= 0 || heightPx <= 0 {
		return 0
	}

	lonSpan := b.MaxLon - b.MinLon
	ySpan := mercatorY(b.MaxLat) - mercatorY(b.MinLat)

	zoom := float64(maxZoom)
	if lonSpan > 0 {
		zoom = math.Min(zoom, math.Log2(float64(widthPx)*360/(Size*lonSpan)))
	}
	if ySpan > 0 {
		zoom = math.Min(zoom, math.Log2(float64(heightPx)*2*math.Pi/(Size*ySpan)))
	}
	if zoom <= 0 {
		return 0
	}
	return uint32(math.Floor(zoom))
}

// mercatorY is the unitless Web Mercator ordinate of a latitude, clamped to
// the tile system's latitude range.
func mercatorY(lat float64) float64 {
	const maxLat = 85.05112878
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	latRad := lat * math.Pi / 180.0
	return math.Log(math.Tan(math.Pi/4.0 + latRad/2.0))
}
