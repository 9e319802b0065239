package datasource

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/paulmach/orb"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// rawElement is one entry of the "elements" array, decoded next to the
// go-overpass result for what that model leaves out: coordinates are
// pointers so missing ones can be told apart from 0,0, and ways and
// relations printed with "out center" keep their center.
type rawElement struct {
	Center *rawPoint         `json:"center"`
	Bounds *rawBounds        `json:"bounds"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Tags   map[string]string `json:"tags"`
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
}

type rawPoint struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type rawBounds struct {
	MinLat float64 `json:"minlat"`
	MinLon float64 `json:"minlon"`
	MaxLat float64 `json:"maxlat"`
	MaxLon float64 `json:"maxlon"`
}

type rawResponse struct {
	Elements *[]rawElement `json:"elements"`
}

// response is one decoded interpreter answer.
type response struct {
	// result is the go-overpass model with relation members linked to ways
	result   *overpass.Result
	elements []rawElement
	// relationBounds maps relation id to the first bbox printed for it
	relationBounds map[int64]types.BoundingBox
}

// decodeResponse rejects anything without an elements array, which is how
// the interpreter reports runtime errors inside a 200.
func decodeResponse(body []byte) (*response, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overpass json: %w", err)
	}
	if raw.Elements == nil {
		return nil, errors.New("response has no elements array")
	}

	resp := &response{
		elements:       *raw.Elements,
		relationBounds: make(map[int64]types.BoundingBox),
	}
	for _, el := range resp.elements {
		if el.Type != string(overpass.ElementTypeRelation) || el.Bounds == nil {
			continue
		}
		if _, seen := resp.relationBounds[el.ID]; !seen {
			resp.relationBounds[el.ID] = el.Bounds.box()
		}
	}
	return resp, nil
}

// printed returns the relations the interpreter actually printed, in
// payload order. go-overpass also creates empty entries for relations
// that are only referenced as members.
func (r *response) printed() []*overpass.Relation {
	if r == nil || r.result == nil {
		return nil
	}
	seen := make(map[int64]bool)
	var out []*overpass.Relation
	for _, el := range r.elements {
		if el.Type != string(overpass.ElementTypeRelation) || seen[el.ID] {
			continue
		}
		seen[el.ID] = true
		if rel := r.result.Relations[el.ID]; rel != nil {
			out = append(out, rel)
		}
	}
	return out
}

func (b rawBounds) box() types.BoundingBox {
	return types.BoundingBox{MinLon: b.MinLon, MinLat: b.MinLat, MaxLon: b.MaxLon, MaxLat: b.MaxLat}
}

// boundsOf prefers the first bbox printed for relID; "out body geom"
// prints the relation again and go-overpass keeps only the last copy.
func (r *response) boundsOf(relID int64) *types.BoundingBox {
	b, ok := r.relationBounds[relID]
	if !ok && r.result != nil {
		if rel := r.result.Relations[relID]; rel != nil && rel.Bounds != nil {
			b = types.BoundingBox{
				MinLon: rel.Bounds.Min.Lon, MinLat: rel.Bounds.Min.Lat,
				MaxLon: rel.Bounds.Max.Lon, MaxLat: rel.Bounds.Max.Lat,
			}
			ok = true
		}
	}
	if !ok || !b.Valid() {
		return nil
	}
	return &b
}

// extractAreas turns every printed relation into an AdminArea, sorted by
// name. kind only feeds the fallback name.
func extractAreas(resp *response, kind string) []types.AdminArea {
	rels := resp.printed()
	areas := make([]types.AdminArea, 0, len(rels))
	for _, rel := range rels {
		areas = append(areas, types.AdminArea{
			ID:     rel.ID,
			Name:   displayName(rel.Tags, fmt.Sprintf("%s %d", kind, rel.ID)),
			Bounds: resp.boundsOf(rel.ID),
		})
	}

	SortAreas(areas)
	return areas
}

// SortAreas orders areas by name using a case-insensitive, locale-aware
// compare. Equal names fall back to the relation id so the order never
// depends on the upstream payload order.
func SortAreas(areas []types.AdminArea) {
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortFunc(areas, func(a, b types.AdminArea) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// extractBoundary assembles the outline of relID from its outer way members.
// Only ways with role "outer" contribute, each becoming its own polygon;
// rings are closed but never merged.
func extractBoundary(resp *response, relID int64) types.Boundary {
	boundary := types.Boundary{OwnerAreaID: relID}
	if resp == nil || resp.result == nil {
		return boundary
	}

	var rel *overpass.Relation
	printed := resp.printed()
	for _, r := range printed {
		if r.ID == relID {
			rel = r
			break
		}
	}
	if rel == nil {
		if len(printed) == 0 {
			return boundary
		}
		// Fall back to the first relation in payload order.
		rel = printed[0]
	}

	boundary.Name = displayName(rel.Tags, fmt.Sprintf("rel %d", rel.ID))
	boundary.Bounds = resp.boundsOf(rel.ID)
	boundary.Geometry = outerPolygons(rel)
	return boundary
}

func outerPolygons(rel *overpass.Relation) orb.MultiPolygon {
	var polygons orb.MultiPolygon
	for _, member := range rel.Members {
		if member.Type != overpass.ElementTypeWay || member.Role != "outer" {
			continue
		}
		way := member.Way
		if way == nil || len(way.Geometry) == 0 {
			continue
		}

		ring := make(orb.Ring, 0, len(way.Geometry)+1)
		for _, point := range way.Geometry {
			ring = append(ring, orb.Point{point.Lon, point.Lat})
		}

		// Ensure ring is closed
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}

		polygons = append(polygons, orb.Polygon{ring})
	}

	if len(polygons) == 0 {
		return nil
	}
	return polygons
}

// extractSettlements keeps the upstream order and drops any row without
// finite coordinates, taking them from lat/lon or, for ways and relations,
// from the "center" object.
func extractSettlements(resp *response) []types.Settlement {
	if resp == nil {
		return []types.Settlement{}
	}

	out := make([]types.Settlement, 0, len(resp.elements))
	for _, el := range resp.elements {
		lat, lon, ok := el.position()
		if !ok {
			continue
		}
		out = append(out, types.Settlement{
			ID:   el.ID,
			Name: displayName(el.Tags, "(unnamed)"),
			Kind: types.SettlementKind(el.Tags["place"]),
			Lat:  lat,
			Lon:  lon,
		})
	}
	return out
}

func (el rawElement) position() (lat, lon float64, ok bool) {
	switch {
	case el.Lat != nil && el.Lon != nil:
		lat, lon = *el.Lat, *el.Lon
	case el.Center != nil && el.Center.Lat != nil && el.Center.Lon != nil:
		lat, lon = *el.Center.Lat, *el.Center.Lon
	default:
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0, 0, false
	}
	return lat, lon, true
}

// displayName picks name, then name:en, then fallback.
func displayName(tags map[string]string, fallback string) string {
	if n := tags["name"]; n != "" {
		return n
	}
	if n := tags["name:en"]; n != "" {
		return n
	}
	return fallback
}
