package datasource

import (
	"testing"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWay(id int64, pts ...overpass.Point) *overpass.Way {
	return &overpass.Way{
		Meta:     overpass.Meta{ID: id},
		Geometry: pts,
	}
}

func newResponse(rels ...*overpass.Relation) *response {
	res := &overpass.Result{Relations: map[int64]*overpass.Relation{}}
	resp := &response{result: res, relationBounds: map[int64]types.BoundingBox{}}
	for _, r := range rels {
		res.Relations[r.ID] = r
		resp.elements = append(resp.elements, rawElement{Type: "relation", ID: r.ID})
	}
	return resp
}

// TestBoundaryAssembly checks that each outer way becomes its own closed
// polygon and that inner ways are ignored.
func TestBoundaryAssembly(t *testing.T) {
	// Open outer way (first != last), must be closed on output.
	outerA := newWay(11,
		overpass.Point{Lat: 22.0, Lon: 77.0},
		overpass.Point{Lat: 22.0, Lon: 78.0},
		overpass.Point{Lat: 23.0, Lon: 78.0},
	)
	// Already closed outer way (an exclave).
	outerB := newWay(12,
		overpass.Point{Lat: 20.0, Lon: 80.0},
		overpass.Point{Lat: 20.0, Lon: 80.5},
		overpass.Point{Lat: 20.5, Lon: 80.5},
		overpass.Point{Lat: 20.0, Lon: 80.0},
	)
	inner := newWay(13,
		overpass.Point{Lat: 22.2, Lon: 77.2},
		overpass.Point{Lat: 22.2, Lon: 77.4},
		overpass.Point{Lat: 22.4, Lon: 77.4},
		overpass.Point{Lat: 22.2, Lon: 77.2},
	)

	rel := &overpass.Relation{
		Meta: overpass.Meta{ID: 1950071, Tags: map[string]string{"name": "Madhya Pradesh"}},
		Members: []overpass.RelationMember{
			{Type: "way", Way: outerA, Role: "outer"},
			{Type: "node", Role: "admin_centre"},
			{Type: "way", Way: inner, Role: "inner"},
			{Type: "way", Way: outerB, Role: "outer"},
		},
	}

	resp := newResponse(rel)
	resp.relationBounds[1950071] = types.BoundingBox{MinLon: 74, MinLat: 21, MaxLon: 82.8, MaxLat: 26.9}

	b := extractBoundary(resp, 1950071)

	require.True(t, b.HasGeometry())
	require.Len(t, b.Geometry, 2, "one polygon per outer way, no merging")
	assert.Equal(t, "Madhya Pradesh", b.Name)
	assert.Equal(t, int64(1950071), b.OwnerAreaID)
	require.NotNil(t, b.Bounds)
	assert.Equal(t, 82.8, b.Bounds.MaxLon)

	for i, poly := range b.Geometry {
		require.Len(t, poly, 1, "polygon %d must only carry its outer ring", i)
		ring := poly[0]
		assert.True(t, ring.Closed(), "ring %d must be closed", i)
	}

	// Coordinates are [lon, lat].
	assert.Equal(t, orb.Point{77.0, 22.0}, b.Geometry[0][0][0])
	assert.Len(t, b.Geometry[0][0], 4, "open way gets its first point appended")
	assert.Len(t, b.Geometry[1][0], 4, "closed way is kept as is")
}

func TestBoundaryWithOnlyInnerWayHasNoGeometry(t *testing.T) {
	inner := newWay(21,
		overpass.Point{Lat: 1, Lon: 1},
		overpass.Point{Lat: 1, Lon: 2},
		overpass.Point{Lat: 2, Lon: 2},
		overpass.Point{Lat: 1, Lon: 1},
	)
	rel := &overpass.Relation{
		Meta:    overpass.Meta{ID: 500, Tags: map[string]string{"name": "Hole"}},
		Members: []overpass.RelationMember{{Type: "way", Way: inner, Role: "inner"}},
	}
	resp := newResponse(rel)
	resp.relationBounds[500] = types.BoundingBox{MinLon: 1, MinLat: 1, MaxLon: 2, MaxLat: 2}

	b := extractBoundary(resp, 500)

	assert.False(t, b.HasGeometry())
	assert.Nil(t, b.Geometry)
	require.NotNil(t, b.Bounds, "bbox from tags survives without geometry")
	assert.Equal(t, "Hole", b.Name)
}

func TestBoundarySkipsOuterWaysWithoutGeometry(t *testing.T) {
	rel := &overpass.Relation{
		Meta: overpass.Meta{ID: 7},
		Members: []overpass.RelationMember{
			{Type: "way", Way: newWay(70), Role: "outer"},
			{Type: "way", Role: "outer"},
		},
	}
	b := extractBoundary(newResponse(rel), 7)

	assert.False(t, b.HasGeometry())
	assert.Equal(t, "rel 7", b.Name)
	assert.Nil(t, b.Bounds)
}

func TestBoundaryMissingRelation(t *testing.T) {
	b := extractBoundary(newResponse(), 42)
	assert.Equal(t, int64(42), b.OwnerAreaID)
	assert.False(t, b.HasGeometry())
	assert.Nil(t, b.Bounds)
}

func TestExtractAreasSortedCaseInsensitive(t *testing.T) {
	rels := []*overpass.Relation{
		{Meta: overpass.Meta{ID: 3, Tags: map[string]string{"name": "kerala"}}},
		{Meta: overpass.Meta{ID: 1, Tags: map[string]string{"name": "Assam"}}},
		{Meta: overpass.Meta{ID: 4, Tags: map[string]string{"name:en": "Bihar"}}},
		{Meta: overpass.Meta{ID: 2, Tags: map[string]string{"name": "Goa"}}},
		{Meta: overpass.Meta{ID: 9}},
	}

	areas := extractAreas(newResponse(rels...), "state")

	names := make([]string, len(areas))
	for i, a := range areas {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"Assam", "Bihar", "Goa", "kerala", "state 9"}, names)
}

func TestSortAreasIndependentOfInputOrder(t *testing.T) {
	base := []types.AdminArea{
		{ID: 10, Name: "Zeta"},
		{ID: 11, Name: "alpha"},
		{ID: 12, Name: "Alpha"},
		{ID: 13, Name: "beta"},
		{ID: 14, Name: "Éclair"},
	}

	permutations := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{3, 4, 0, 2, 1},
	}

	var want []types.AdminArea
	for _, perm := range permutations {
		in := make([]types.AdminArea, len(base))
		for i, j := range perm {
			in[i] = base[j]
		}
		SortAreas(in)
		if want == nil {
			want = in
			continue
		}
		assert.Equal(t, want, in)
	}

	// alpha/Alpha compare equal ignoring case, so the id decides.
	assert.Equal(t, int64(11), want[0].ID)
	assert.Equal(t, int64(12), want[1].ID)
	assert.Equal(t, "beta", want[2].Name)
	assert.Equal(t, "Zeta", want[4].Name)
}

func f(v float64) *float64 { return &v }

func TestExtractSettlementsDropsRowsWithoutCoordinates(t *testing.T) {
	resp := &response{elements: []rawElement{
		{Type: "node", ID: 1, Lat: f(28.61), Lon: f(77.21), Tags: map[string]string{"name": "New Delhi", "place": "city"}},
		{Type: "node", ID: 2, Lat: f(27.1), Tags: map[string]string{"name": "Half", "place": "town"}},
		{Type: "way", ID: 3, Center: &rawPoint{Lat: f(26.9), Lon: f(75.8)}, Tags: map[string]string{"name:en": "Jaipur", "place": "city"}},
		{Type: "relation", ID: 4, Tags: map[string]string{"name": "Nowhere", "place": "village"}},
		{Type: "node", ID: 5, Lat: f(12.0), Lon: f(76.0), Tags: map[string]string{"place": "village"}},
	}}

	got := extractSettlements(resp)

	require.Len(t, got, 3)
	assert.Equal(t, types.Settlement{ID: 1, Name: "New Delhi", Kind: types.KindCity, Lat: 28.61, Lon: 77.21}, got[0])
	assert.Equal(t, "Jaipur", got[1].Name)
	assert.Equal(t, 75.8, got[1].Lon)
	assert.Equal(t, "(unnamed)", got[2].Name)
	assert.Equal(t, types.KindVillage, got[2].Kind)
}

func TestDecodeResponseRequiresElements(t *testing.T) {
	_, err := decodeResponse([]byte(`{"remark":"runtime error"}`))
	require.Error(t, err)

	_, err = decodeResponse([]byte(`not json`))
	require.Error(t, err)

	resp, err := decodeResponse([]byte(`{"elements":[]}`))
	require.NoError(t, err)
	assert.Empty(t, resp.elements)
}

func TestExtractAreasSkipsMemberPlaceholders(t *testing.T) {
	// go-overpass adds an empty entry for a relation that is only a member
	sub := &overpass.Relation{Meta: overpass.Meta{ID: 99}}
	rel := &overpass.Relation{
		Meta:    overpass.Meta{ID: 1, Tags: map[string]string{"name": "Kerala"}},
		Members: []overpass.RelationMember{{Type: overpass.ElementTypeRelation, Relation: sub, Role: "subarea"}},
	}
	resp := newResponse(rel)
	resp.result.Relations[99] = sub

	areas := extractAreas(resp, "state")
	require.Len(t, areas, 1)
	assert.Equal(t, "Kerala", areas[0].Name)
}

func TestBoundsFallBackToLibraryBox(t *testing.T) {
	rel := &overpass.Relation{
		Meta:   overpass.Meta{ID: 3},
		Bounds: &overpass.Box{Min: overpass.Point{Lat: 8, Lon: 76}, Max: overpass.Point{Lat: 12, Lon: 77}},
	}
	resp := newResponse(rel)

	b := resp.boundsOf(3)
	require.NotNil(t, b)
	assert.Equal(t, types.BoundingBox{MinLon: 76, MinLat: 8, MaxLon: 77, MaxLat: 12}, *b)

	resp.relationBounds[3] = types.BoundingBox{MinLon: 1, MinLat: 1, MaxLon: 2, MaxLat: 2}
	assert.Equal(t, 2.0, resp.boundsOf(3).MaxLon, "the first printed bbox wins")
}
