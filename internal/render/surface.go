package render

import (
	"sync"

	"github.com/MeKo-Tech/geoexplorer/internal/geojson"
	"github.com/MeKo-Tech/geoexplorer/internal/selection"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
	orbjson "github.com/paulmach/orb/geojson"
)

// Surface is the map the renderer draws on. Implementations receive whole
// layer replacements; they never see partial updates.
type Surface interface {
	Replace(layer geojson.LayerID, fc *orbjson.FeatureCollection)
	Clear(layer geojson.LayerID)
	SetBasemap(b selection.Basemap)
	FitBounds(b types.BoundingBox)
	SetView(center types.LatLon, zoom uint32)
}

// OpKind tags one surface call.
type OpKind string

const (
	OpReplace OpKind = "replace"
	OpClear   OpKind = "clear"
	OpBasemap OpKind = "basemap"
	OpFit     OpKind = "fit"
	OpView    OpKind = "view"
)

// Op is one recorded surface call.
type Op struct {
	Data    *orbjson.FeatureCollection `json:"data,omitempty"`
	Bounds  *types.BoundingBox         `json:"bounds,omitempty"`
	Center  *types.LatLon              `json:"center,omitempty"`
	Kind    OpKind                     `json:"op"`
	Layer   geojson.LayerID            `json:"layer,omitempty"`
	Basemap string                     `json:"basemap,omitempty"`
	Zoom    uint32                     `json:"zoom,omitempty"`
}

// MemorySurface keeps the current content of every layer in memory and
// optionally reports each call to a listener. It is safe for concurrent use:
// the renderer writes while HTTP handlers read.
type MemorySurface struct {
	layers   map[geojson.LayerID]*orbjson.FeatureCollection
	listener func(Op)
	ops      []Op
	basemap  selection.Basemap
	bounds   *types.BoundingBox
	view     *types.LatLon
	zoom     uint32
	mu       sync.RWMutex
	record   bool
}

// NewMemorySurface creates an empty surface. With record set every call is
// also appended to an in-memory log (tests use this).
func NewMemorySurface(record bool) *MemorySurface {
	return &MemorySurface{
		layers: make(map[geojson.LayerID]*orbjson.FeatureCollection),
		record: record,
	}
}

// OnOp registers a listener called after every surface change. The
// listener runs with no lock held.
func (m *MemorySurface) OnOp(fn func(Op)) {
	m.mu.Lock()
	m.listener = fn
	m.mu.Unlock()
}

func (m *MemorySurface) apply(op Op, mutate func()) {
	m.mu.Lock()
	mutate()
	if m.record {
		m.ops = append(m.ops, op)
	}
	fn := m.listener
	m.mu.Unlock()

	if fn != nil {
		fn(op)
	}
}

func (m *MemorySurface) Replace(layer geojson.LayerID, fc *orbjson.FeatureCollection) {
	m.apply(Op{Kind: OpReplace, Layer: layer, Data: fc}, func() {
		m.layers[layer] = fc
	})
}

func (m *MemorySurface) Clear(layer geojson.LayerID) {
	m.apply(Op{Kind: OpClear, Layer: layer}, func() {
		delete(m.layers, layer)
	})
}

func (m *MemorySurface) SetBasemap(b selection.Basemap) {
	m.apply(Op{Kind: OpBasemap, Basemap: b.ID}, func() {
		m.basemap = b
	})
}

func (m *MemorySurface) FitBounds(b types.BoundingBox) {
	m.apply(Op{Kind: OpFit, Bounds: &b}, func() {
		m.bounds = &b
	})
}

func (m *MemorySurface) SetView(center types.LatLon, zoom uint32) {
	m.apply(Op{Kind: OpView, Center: &center, Zoom: zoom}, func() {
		m.view = &center
		m.zoom = zoom
	})
}

// Layer returns the current content of a layer, or nil when it is empty.
func (m *MemorySurface) Layer(layer geojson.LayerID) *orbjson.FeatureCollection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.layers[layer]
}

// FeatureCount returns the number of features on a layer.
func (m *MemorySurface) FeatureCount(layer geojson.LayerID) int {
	fc := m.Layer(layer)
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// Basemap returns the active basemap.
func (m *MemorySurface) Basemap() selection.Basemap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.basemap
}

// Bounds returns the last fitted bounds, if any.
func (m *MemorySurface) Bounds() *types.BoundingBox {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bounds
}

// View returns the last explicit centre and zoom, if any.
func (m *MemorySurface) View() (*types.LatLon, uint32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view, m.zoom
}

// Ops returns a copy of the recorded calls.
func (m *MemorySurface) Ops() []Op {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Op, len(m.ops))
	copy(out, m.ops)
	return out
}

// ResetOps drops the recorded calls.
func (m *MemorySurface) ResetOps() {
	m.mu.Lock()
	m.ops = nil
	m.mu.Unlock()
}
