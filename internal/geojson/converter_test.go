package geojson

import (
	"encoding/json"
	"testing"

	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/paulmach/orb"
)

func square(lon, lat, d float64) orb.Polygon {
	return orb.Polygon{{{lon, lat}, {lon + d, lat}, {lon + d, lat + d}, {lon, lat + d}, {lon, lat}}}
}

func TestFromBoundary(t *testing.T) {
	b := types.Boundary{
		OwnerAreaID: 1950071,
		Name:        "Madhya Pradesh",
		Geometry:    orb.MultiPolygon{square(77, 22, 1), square(80, 20, 0.5)},
		Bounds:      &types.BoundingBox{MinLon: 77, MinLat: 20, MaxLon: 80.5, MaxLat: 23},
	}

	fc := FromBoundary(b, Style{Color: "#56B4E9", Weight: 2, FillOpacity: 0.08})

	if len(fc.Features) != 1 {
		t.Fatalf("Expected 1 feature, got %d", len(fc.Features))
	}
	f := fc.Features[0]
	if f.Geometry.GeoJSONType() != "MultiPolygon" {
		t.Errorf("Expected MultiPolygon, got %s", f.Geometry.GeoJSONType())
	}
	if f.Properties["color"] != "#56B4E9" {
		t.Errorf("Expected color=#56B4E9, got %v", f.Properties["color"])
	}
	if f.Properties["name"] != "Madhya Pradesh" {
		t.Errorf("Expected name=Madhya Pradesh")
	}
	if len(fc.BBox) != 4 {
		t.Errorf("Expected bbox on collection, got %v", fc.BBox)
	}
}

func TestFromBoundaryWithoutGeometry(t *testing.T) {
	fc := FromBoundary(types.Boundary{OwnerAreaID: 1}, Style{Color: "#000"})
	if len(fc.Features) != 0 {
		t.Errorf("Expected empty collection, got %d features", len(fc.Features))
	}
}

func TestFromSettlements(t *testing.T) {
	ss := []types.Settlement{
		{ID: 1, Name: "Pune", Kind: types.KindCity, Lat: 18.52, Lon: 73.85},
		{ID: 2, Name: "Wai", Kind: types.KindVillage, Lat: 17.95, Lon: 73.89},
	}
	colors := map[types.SettlementKind]string{types.KindCity: "#E69F00", types.KindVillage: "#FF6655"}

	fc := FromSettlements(ss, func(k types.SettlementKind) Style {
		return Style{Color: colors[k], Radius: 4}
	})

	if len(fc.Features) != 2 {
		t.Fatalf("Expected 2 features, got %d", len(fc.Features))
	}
	p, ok := fc.Features[0].Geometry.(orb.Point)
	if !ok {
		t.Fatalf("Expected Point, got %T", fc.Features[0].Geometry)
	}
	if p.Lon() != 73.85 || p.Lat() != 18.52 {
		t.Errorf("Expected lon/lat order, got %v", p)
	}
	if fc.Features[1].Properties["color"] != "#FF6655" {
		t.Errorf("Expected village colour, got %v", fc.Features[1].Properties["color"])
	}
	if fc.Features[1].Properties["type"] != "village" {
		t.Errorf("Expected type=village")
	}
}

func TestFromHeat(t *testing.T) {
	ss := []types.Settlement{
		{ID: 1, Kind: types.KindTown, Lat: 1, Lon: 1},
	}
	fc := FromHeat(ss, func(types.SettlementKind) float64 { return 0.7 })
	if got := fc.Features[0].Properties["weight"]; got != 0.7 {
		t.Errorf("Expected weight 0.7, got %v", got)
	}
}

func TestFromRouteNil(t *testing.T) {
	if fc := FromRoute(nil, Style{}); len(fc.Features) != 0 {
		t.Errorf("Expected empty collection for nil route")
	}

	r := &types.RouteResult{Geometry: orb.LineString{{1, 1}, {2, 2}}, DistanceKm: 3.5, DurationMin: 7}
	fc := FromRoute(r, Style{Color: "#7c3aed", Weight: 5})
	if len(fc.Features) != 1 || fc.Features[0].Properties["distance_km"] != 3.5 {
		t.Errorf("Expected route feature with distance, got %+v", fc.Features)
	}
}

func TestFromRings(t *testing.T) {
	rings := []Ring{
		{Ring: orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, RadiusKm: 1},
		{Ring: orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 0}}, RadiusKm: 3, Dashed: true},
	}
	fc := FromRings(rings, Style{Color: "#7c3aed"}, "6 6")

	if _, ok := fc.Features[0].Properties["dashArray"]; ok {
		t.Errorf("First ring must be solid")
	}
	if fc.Features[1].Properties["dashArray"] != "6 6" {
		t.Errorf("Second ring must be dashed")
	}
}

func TestMarshal(t *testing.T) {
	fc := FromClusters([]Cluster{{Center: orb.Point{10, 20}, Key: "z5_x1_y2", Count: 12}}, Style{Color: "#E69F00"})

	data, err := Marshal(fc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if result["type"] != "FeatureCollection" {
		t.Errorf("Expected FeatureCollection type")
	}

	empty, err := Marshal(nil)
	if err != nil || len(empty) == 0 {
		t.Errorf("Expected empty collection bytes, got %q, %v", empty, err)
	}
}

func TestParseLayer(t *testing.T) {
	for _, l := range Layers() {
		got, err := ParseLayer(string(l))
		if err != nil || got != l {
			t.Errorf("ParseLayer(%s) = %s, %v", l, got, err)
		}
	}
	if _, err := ParseLayer("water"); err == nil {
		t.Errorf("Expected error for unknown layer")
	}
}
