package tile

import (
	"testing"

	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/paulmach/orb"
)

func TestCoordsString(t *testing.T) {
	tests := []struct {
		coords   Coords
		expected string
	}{
		{Coords{Z: 13, X: 4297, Y: 2754}, "z13_x4297_y2754"},
		{Coords{Z: 0, X: 0, Y: 0}, "z0_x0_y0"},
		{Coords{Z: 18, X: 12345, Y: 67890}, "z18_x12345_y67890"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := tt.coords.String()
			if result != tt.expected {
				t.Errorf("String() = %s, want %s", result, tt.expected)
			}
			parsed, err := ParseCoords(result)
			if err != nil {
				t.Fatalf("ParseCoords(%s) failed: %v", result, err)
			}
			if parsed != tt.coords {
				t.Errorf("ParseCoords(%s) = %+v, want %+v", result, parsed, tt.coords)
			}
		})
	}
}

func TestParseCoordsInvalid(t *testing.T) {
	if _, err := ParseCoords("13/4297/2754"); err == nil {
		t.Error("expected error for slash-separated input")
	}
}

func TestAtContainsPoint(t *testing.T) {
	// Pune
	p := orb.Point{73.8567, 18.5204}

	for _, z := range []uint32{0, 5, 10, 14} {
		c := At(p, z)
		if c.Z != z {
			t.Errorf("zoom %d: got tile zoom %d", z, c.Z)
		}
		b := c.Bounds()
		if p.Lon() < b.MinLon || p.Lon() > b.MaxLon || p.Lat() < b.MinLat || p.Lat() > b.MaxLat {
			t.Errorf("zoom %d: tile %s bounds %s do not contain %v", z, c, b, p)
		}
		center := c.Center()
		if center.Lon() < b.MinLon || center.Lon() > b.MaxLon {
			t.Errorf("zoom %d: center %v outside tile", z, center)
		}
	}

	if At(p, 0) != (Coords{}) {
		t.Errorf("zoom 0 must be the single world tile, got %s", At(p, 0))
	}
}

func TestZoomForBounds(t *testing.T) {
	world := types.BoundingBox{MinLon: -180, MinLat: -85, MaxLon: 180, MaxLat: 85}
	if z := ZoomForBounds(world, 256, 256, MaxZoom); z != 0 {
		t.Errorf("world in one tile: zoom = %d, want 0", z)
	}

	// ~0.001° box around a town, capped by maxZoom
	town := types.BoundingBox{MinLon: 73.85, MinLat: 18.51, MaxLon: 73.851, MaxLat: 18.511}
	if z := ZoomForBounds(town, 1024, 768, 17); z != 17 {
		t.Errorf("tiny box: zoom = %d, want capped 17", z)
	}

	// a state-sized box lands in the mid range
	state := types.BoundingBox{MinLon: 72.6, MinLat: 15.6, MaxLon: 80.9, MaxLat: 22.0}
	z := ZoomForBounds(state, 1024, 768, MaxZoom)
	if z < 5 || z > 7 {
		t.Errorf("state box: zoom = %d, want 5..7", z)
	}

	inverted := types.BoundingBox{MinLon: 10, MinLat: 0, MaxLon: 5, MaxLat: 1}
	if z := ZoomForBounds(inverted, 1024, 768, MaxZoom); z != 0 {
		t.Errorf("invalid bounds: zoom = %d, want 0", z)
	}
}
