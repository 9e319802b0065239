package types

import (
	"github.com/paulmach/orb"
)

// AdminArea is a state or district as listed by the boundary service.
type AdminArea struct {
	Bounds *BoundingBox `json:"bounds,omitempty"`
	Name   string       `json:"name"`
	ID     int64        `json:"rel"` // OSM relation id
}

// SettlementKind classifies a populated place.
type SettlementKind string

const (
	KindCity    SettlementKind = "city"
	KindTown    SettlementKind = "town"
	KindVillage SettlementKind = "village"
)

// Valid reports whether k is one of the known settlement kinds.
func (k SettlementKind) Valid() bool {
	switch k {
	case KindCity, KindTown, KindVillage:
		return true
	}
	return false
}

// Settlement is a populated place with a point position.
type Settlement struct {
	Name string         `json:"name"`
	Kind SettlementKind `json:"type"`
	ID   int64          `json:"id"`
	Lat  float64        `json:"lat"`
	Lon  float64        `json:"lon"`
}

// Point returns the settlement position as an orb point.
func (s Settlement) Point() orb.Point {
	return orb.Point{s.Lon, s.Lat}
}

// Boundary is the drawable outline of one admin area.
//
// Geometry holds one polygon per outer way. A nil Geometry is a valid
// result: the upstream knew the area but returned no outer ring to draw.
type Boundary struct {
	Geometry    orb.MultiPolygon
	Bounds      *BoundingBox
	Name        string
	OwnerAreaID int64
}

// HasGeometry reports whether there is at least one polygon to draw.
func (b Boundary) HasGeometry() bool {
	return len(b.Geometry) > 0
}

// RouteResult is a computed route ready for display.
type RouteResult struct {
	Geometry    orb.Geometry `json:"-"`
	DistanceKm  float64      `json:"distance_km"`
	DurationMin float64      `json:"duration_min"`
}
