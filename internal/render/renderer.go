// Package render draws explorer data onto a Surface: the boundary outline,
// settlements (clustered or as dots, with an optional heat overlay), the
// route and the distance rings around the route start.
package render

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/MeKo-Tech/geoexplorer/internal/geojson"
	"github.com/MeKo-Tech/geoexplorer/internal/selection"
	"github.com/MeKo-Tech/geoexplorer/internal/tile"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	orbjson "github.com/paulmach/orb/geojson"
)

// Layer colours.
const (
	ColorState    = "#56B4E9"
	ColorDistrict = "#00C389"
	ColorCity     = "#E69F00"
	ColorVillage  = "#FF6655"
	ColorRoute    = "#7c3aed"
	ColorRings    = "#94a3b8"
)

const (
	// ClusterDisableZoom is the zoom from which points are always drawn
	// individually.
	ClusterDisableZoom = 11

	// PickZoom is the zoom a picked search result is shown at.
	PickZoom = 11

	// ringSegments is the number of vertices per distance ring.
	ringSegments = 64

	boundaryPadding = 0.05
	routePadding    = 0.08

	ringDash = "4 6"
)

// RingRadiiKm are the distance rings drawn around the route start.
var RingRadiiKm = []float64{1, 3, 5}

// PointMode selects how settlements are drawn.
type PointMode string

const (
	PointModeCluster PointMode = "cluster"
	PointModeDots    PointMode = "dots"
)

// Valid reports whether m is a known mode.
func (m PointMode) Valid() bool {
	return m == PointModeCluster || m == PointModeDots
}

// HeatWeight is the intensity a settlement contributes to the heat overlay.
func HeatWeight(k types.SettlementKind) float64 {
	switch k {
	case types.KindCity:
		return 1.0
	case types.KindTown:
		return 0.7
	default:
		return 0.35
	}
}

// BoundaryColor returns the outline colour for an area shown at the given tier.
func BoundaryColor(tier selection.Level) string {
	if tier == selection.LevelDistrict {
		return ColorDistrict
	}
	return ColorState
}

func pointStyle(k types.SettlementKind) geojson.Style {
	color := ColorVillage
	if k == types.KindCity || k == types.KindTown {
		color = ColorCity
	}
	return geojson.Style{Color: color, Weight: 1, FillOpacity: 0.85, Radius: 5}
}

// Options configures a Renderer.
type Options struct {
	Logger *slog.Logger
	// ViewportWidth and ViewportHeight size the viewport in pixels; they
	// decide the zoom a fitted boundary lands at (default 1024×768)
	ViewportWidth  int
	ViewportHeight int
	// InitialZoom is the zoom before anything is fitted (default 5)
	InitialZoom uint32
	// MaxZoom caps fitted zooms (default 19)
	MaxZoom uint32
	Mode    PointMode
	Heat    bool
}

// Renderer owns the drawing state of one map. It is not safe for
// concurrent use; callers serialize access.
type Renderer struct {
	surface Surface
	logger  *slog.Logger
	mode    PointMode
	points  []types.Settlement
	width   int
	height  int
	zoom    uint32
	maxZoom uint32
	heat    bool
}

// New creates a renderer drawing on s.
func New(s Surface, opts Options) *Renderer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1024
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 768
	}
	if opts.InitialZoom == 0 {
		opts.InitialZoom = 5
	}
	if opts.MaxZoom == 0 {
		opts.MaxZoom = 19
	}
	if !opts.Mode.Valid() {
		opts.Mode = PointModeCluster
	}

	return &Renderer{
		surface: s,
		logger:  opts.Logger.With("component", "renderer"),
		mode:    opts.Mode,
		heat:    opts.Heat,
		width:   opts.ViewportWidth,
		height:  opts.ViewportHeight,
		zoom:    opts.InitialZoom,
		maxZoom: opts.MaxZoom,
	}
}

// Zoom returns the zoom the renderer assumes the surface is at.
func (r *Renderer) Zoom() uint32 { return r.zoom }

// PointMode returns the current point mode.
func (r *Renderer) PointMode() PointMode { return r.mode }

// Heat reports whether the heat overlay is on.
func (r *Renderer) Heat() bool { return r.heat }

// DrawBoundary replaces the boundary layer and fits the view to it. A
// boundary without geometry leaves the layer empty and fits to its bounds
// when known.
func (r *Renderer) DrawBoundary(b types.Boundary, tier selection.Level) {
	r.surface.Clear(geojson.LayerBoundary)

	if b.HasGeometry() {
		color := BoundaryColor(tier)
		style := geojson.Style{Color: color, Weight: 1, FillOpacity: 0.08}
		r.surface.Replace(geojson.LayerBoundary, geojson.FromBoundary(b, style))
		r.fit(types.BoundingBoxFromBound(b.Geometry.Bound()), boundaryPadding)
		return
	}

	r.logger.Debug("boundary has no outer geometry", "rel", b.OwnerAreaID)
	if b.Bounds != nil {
		r.fit(*b.Bounds, boundaryPadding)
	}
}

// ClearBoundary empties the boundary layer.
func (r *Renderer) ClearBoundary() {
	r.surface.Clear(geojson.LayerBoundary)
}

// DrawSettlements replaces the point layers with ss and retains the set so
// mode and heat toggles can redraw it.
func (r *Renderer) DrawSettlements(ss []types.Settlement) {
	r.points = slices.Clone(ss)
	r.drawPoints()
}

// ClearPoints empties the point and heat layers and forgets the retained set.
func (r *Renderer) ClearPoints() {
	r.points = nil
	r.surface.Clear(geojson.LayerPoints)
	r.surface.Clear(geojson.LayerHeat)
}

// PointCount returns the size of the retained point set.
func (r *Renderer) PointCount() int { return len(r.points) }

// SetPointMode switches between clustered and plain dots and redraws.
func (r *Renderer) SetPointMode(m PointMode) error {
	if !m.Valid() {
		return fmt.Errorf("unknown point mode %q", m)
	}
	if m == r.mode {
		return nil
	}
	r.mode = m
	if len(r.points) > 0 {
		r.drawPoints()
	}
	return nil
}

// SetHeat toggles the heat overlay and redraws.
func (r *Renderer) SetHeat(on bool) {
	if on == r.heat {
		return
	}
	r.heat = on
	if len(r.points) > 0 {
		r.drawPoints()
		return
	}
	r.surface.Clear(geojson.LayerHeat)
}

// SetBasemap swaps the background. Data layers are not touched.
func (r *Renderer) SetBasemap(b selection.Basemap) {
	r.surface.SetBasemap(b)
	// the surface clamps its own zoom; mirror that for clustering
	if b.MaxZoom > 0 && r.zoom > uint32(b.MaxZoom) {
		r.zoom = uint32(b.MaxZoom)
	}
}

// SetView centres the surface on p at zoom z.
func (r *Renderer) SetView(p types.LatLon, z uint32) {
	r.zoom = min(z, r.maxZoom)
	r.surface.SetView(p, r.zoom)
	if len(r.points) > 0 && r.mode == PointModeCluster {
		r.drawPoints()
	}
}

// DrawRoute replaces the route layer. A nil route leaves it empty.
func (r *Renderer) DrawRoute(route *types.RouteResult) {
	r.surface.Clear(geojson.LayerRoute)
	if route == nil || route.Geometry == nil {
		return
	}
	style := geojson.Style{Color: ColorRoute, Weight: 4}
	r.surface.Replace(geojson.LayerRoute, geojson.FromRoute(route, style))
	r.fit(types.BoundingBoxFromBound(route.Geometry.Bound()), routePadding)
}

// ClearRoute empties the route layer.
func (r *Renderer) ClearRoute() {
	r.surface.Clear(geojson.LayerRoute)
}

// DrawRings replaces the rings layer with circles around start plus a
// start marker. A nil start leaves it empty.
func (r *Renderer) DrawRings(start *types.LatLon) {
	r.surface.Clear(geojson.LayerRings)
	if start == nil {
		return
	}

	rings := make([]geojson.Ring, 0, len(RingRadiiKm))
	for i, km := range RingRadiiKm {
		rings = append(rings, geojson.Ring{
			Ring:     Circle(start.Point(), km*1000),
			RadiusKm: km,
			Dashed:   i > 0,
		})
	}
	fc := geojson.FromRings(rings, geojson.Style{Color: ColorRings, Weight: 1}, ringDash)

	marker := orbjson.NewFeature(start.Point())
	marker.Properties["role"] = "start"
	fc.Append(marker)

	r.surface.Replace(geojson.LayerRings, fc)
}

// Circle approximates a geodesic circle of radius metres around center.
func Circle(center orb.Point, radius float64) orb.Ring {
	ring := make(orb.Ring, 0, ringSegments+1)
	for i := 0; i < ringSegments; i++ {
		bearing := float64(i) * 360 / ringSegments
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, radius))
	}
	return append(ring, ring[0])
}

func (r *Renderer) fit(b types.BoundingBox, pad float64) {
	if !b.Valid() {
		return
	}
	b = b.ExpandByFraction(pad)
	r.surface.FitBounds(b)
	r.zoom = tile.ZoomForBounds(b, r.width, r.height, r.maxZoom)
	if len(r.points) > 0 && r.mode == PointModeCluster {
		r.drawPoints()
	}
}

func (r *Renderer) drawPoints() {
	r.surface.Clear(geojson.LayerPoints)
	r.surface.Clear(geojson.LayerHeat)
	if len(r.points) == 0 {
		return
	}

	if r.mode == PointModeCluster && r.zoom < ClusterDisableZoom {
		r.surface.Replace(geojson.LayerPoints, r.clustered())
	} else {
		r.surface.Replace(geojson.LayerPoints, geojson.FromSettlements(r.points, pointStyle))
	}

	if r.heat {
		r.surface.Replace(geojson.LayerHeat, geojson.FromHeat(r.points, HeatWeight))
	}
}

// clustered buckets points by map tile at the current zoom. Cells with a
// single point stay plain point features.
func (r *Renderer) clustered() *orbjson.FeatureCollection {
	type cell struct {
		key     tile.Coords
		members []types.Settlement
	}
	cells := make(map[tile.Coords]*cell)
	for _, s := range r.points {
		k := tile.At(s.Point(), r.zoom)
		c, ok := cells[k]
		if !ok {
			c = &cell{key: k}
			cells[k] = c
		}
		c.members = append(c.members, s)
	}

	ordered := make([]*cell, 0, len(cells))
	for _, c := range cells {
		ordered = append(ordered, c)
	}
	slices.SortFunc(ordered, func(a, b *cell) int {
		switch {
		case a.key.Y != b.key.Y:
			return int(a.key.Y) - int(b.key.Y)
		default:
			return int(a.key.X) - int(b.key.X)
		}
	})

	var singles []types.Settlement
	var clusters []geojson.Cluster
	for _, c := range ordered {
		if len(c.members) == 1 {
			singles = append(singles, c.members[0])
			continue
		}
		clusters = append(clusters, geojson.Cluster{
			Center: centroid(c.members),
			Key:    c.key.String(),
			Count:  len(c.members),
		})
	}

	fc := geojson.FromClusters(clusters, geojson.Style{Color: ColorCity, FillOpacity: 0.6})
	for _, f := range geojson.FromSettlements(singles, pointStyle).Features {
		fc.Append(f)
	}
	return fc
}

func centroid(ss []types.Settlement) orb.Point {
	var lon, lat float64
	for _, s := range ss {
		lon += s.Lon
		lat += s.Lat
	}
	n := float64(len(ss))
	return orb.Point{lon / n, lat / n}
}
