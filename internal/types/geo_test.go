package types

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestBoundingBoxExpandByFraction(t *testing.T) {
	b := BoundingBox{MinLon: 10, MinLat: 20, MaxLon: 30, MaxLat: 40}

	expanded := b.ExpandByFraction(0.1)
	// width=20, height=20 => delta=2 on each side
	if expanded.MinLon != 8 || expanded.MaxLon != 32 || expanded.MinLat != 18 || expanded.MaxLat != 42 {
		t.Fatalf("unexpected expanded bbox: %+v", expanded)
	}

	unchanged := b.ExpandByFraction(0)
	if unchanged != b {
		t.Fatalf("expected unchanged bbox, got %+v", unchanged)
	}
}

func TestBoundingBoxBoundRoundTrip(t *testing.T) {
	b := BoundingBox{MinLon: 68.1, MinLat: 6.5, MaxLon: 97.4, MaxLat: 35.7}

	got := BoundingBoxFromBound(b.Bound())
	if got != b {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, b)
	}

	if !b.Bound().Contains(orb.Point{78.96, 20.59}) {
		t.Fatal("expected bound to contain central India")
	}
}

func TestBoundingBoxValid(t *testing.T) {
	tests := []struct {
		name string
		box  BoundingBox
		want bool
	}{
		{"ordered", BoundingBox{MinLon: 1, MinLat: 1, MaxLon: 2, MaxLat: 2}, true},
		{"degenerate point", BoundingBox{MinLon: 1, MinLat: 1, MaxLon: 1, MaxLat: 1}, true},
		{"swapped lon", BoundingBox{MinLon: 3, MinLat: 1, MaxLon: 2, MaxLat: 2}, false},
		{"nan", BoundingBox{MinLon: math.NaN(), MinLat: 1, MaxLon: 2, MaxLat: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLatLonValid(t *testing.T) {
	if !(LatLon{Lat: 28.61, Lon: 77.21}).Valid() {
		t.Error("expected Delhi to be valid")
	}
	if (LatLon{Lat: 91, Lon: 0}).Valid() {
		t.Error("expected lat 91 to be invalid")
	}
	if (LatLon{Lat: math.Inf(1), Lon: 0}).Valid() {
		t.Error("expected +Inf to be invalid")
	}
	if p := (LatLon{Lat: 1, Lon: 2}).Point(); p.Lon() != 2 || p.Lat() != 1 {
		t.Errorf("Point() swapped axes: %v", p)
	}
}
