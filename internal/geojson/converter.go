// Package geojson turns explorer data into the GeoJSON feature collections
// each map layer is drawn from.
package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LayerID names one drawable layer of the map surface.
type LayerID string

const (
	LayerBoundary LayerID = "boundary"
	LayerPoints   LayerID = "points"
	LayerHeat     LayerID = "heat"
	LayerRoute    LayerID = "route"
	LayerRings    LayerID = "rings"
)

// Layers returns every layer id in draw order (bottom first).
func Layers() []LayerID {
	return []LayerID{LayerBoundary, LayerHeat, LayerPoints, LayerRoute, LayerRings}
}

// ParseLayer validates a layer name.
func ParseLayer(s string) (LayerID, error) {
	for _, l := range Layers() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown layer %q", s)
}

// Style is the subset of path options the browser applies to a feature.
type Style struct {
	Color       string
	DashArray   string
	Weight      float64
	FillOpacity float64
	Radius      float64
}

func (s Style) apply(props geojson.Properties) {
	props["color"] = s.Color
	if s.Weight > 0 {
		props["weight"] = s.Weight
	}
	if s.FillOpacity > 0 {
		props["fillOpacity"] = s.FillOpacity
	}
	if s.DashArray != "" {
		props["dashArray"] = s.DashArray
	}
	if s.Radius > 0 {
		props["radius"] = s.Radius
	}
}

// Cluster is a group of settlements that share one tile cell.
type Cluster struct {
	Center orb.Point
	Key    string
	Count  int
}

// Ring is one distance circle around a route start.
type Ring struct {
	Ring     orb.Ring
	RadiusKm float64
	Dashed   bool
}

// FromBoundary encodes a boundary as a single MultiPolygon feature.
// A boundary without geometry yields an empty collection.
func FromBoundary(b types.Boundary, style Style) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if !b.HasGeometry() {
		return fc
	}

	f := geojson.NewFeature(b.Geometry)
	f.Properties["rel"] = b.OwnerAreaID
	if b.Name != "" {
		f.Properties["name"] = b.Name
	}
	style.apply(f.Properties)
	fc.Append(f)

	if b.Bounds != nil {
		fc.BBox = geojson.NewBBox(b.Bounds.Bound())
	}
	return fc
}

// FromSettlements encodes one point feature per settlement. styleFor picks
// the style by kind.
func FromSettlements(ss []types.Settlement, styleFor func(types.SettlementKind) Style) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range ss {
		f := geojson.NewFeature(s.Point())
		f.ID = s.ID
		f.Properties["id"] = s.ID
		f.Properties["name"] = s.Name
		f.Properties["type"] = string(s.Kind)
		styleFor(s.Kind).apply(f.Properties)
		fc.Append(f)
	}
	return fc
}

// FromClusters encodes cluster cells. Cells holding one settlement should
// be passed to FromSettlements instead.
func FromClusters(cs []Cluster, style Style) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range cs {
		f := geojson.NewFeature(c.Center)
		f.Properties["cluster"] = true
		f.Properties["cell"] = c.Key
		f.Properties["count"] = c.Count
		style.apply(f.Properties)
		fc.Append(f)
	}
	return fc
}

// FromHeat encodes weighted points for a heat overlay.
func FromHeat(ss []types.Settlement, weightFor func(types.SettlementKind) float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range ss {
		f := geojson.NewFeature(s.Point())
		f.Properties["weight"] = weightFor(s.Kind)
		fc.Append(f)
	}
	return fc
}

// FromRoute encodes a computed route. A nil route yields an empty collection.
func FromRoute(r *types.RouteResult, style Style) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if r == nil || r.Geometry == nil {
		return fc
	}

	f := geojson.NewFeature(r.Geometry)
	f.Properties["distance_km"] = r.DistanceKm
	f.Properties["duration_min"] = r.DurationMin
	style.apply(f.Properties)
	fc.Append(f)
	return fc
}

// FromRings encodes distance rings as closed line strings.
func FromRings(rings []Ring, style Style, dash string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range rings {
		f := geojson.NewFeature(orb.LineString(r.Ring))
		f.Properties["radius_km"] = r.RadiusKm
		s := style
		if r.Dashed {
			s.DashArray = dash
		}
		f.Properties["dash"] = r.Dashed
		s.apply(f.Properties)
		fc.Append(f)
	}
	return fc
}

// Marshal encodes a collection to JSON bytes.
func Marshal(fc *geojson.FeatureCollection) ([]byte, error) {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	return data, nil
}
