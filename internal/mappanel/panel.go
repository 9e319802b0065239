// Package mappanel drives one explorer map. A Panel owns the selection, the
// cached areas and settlements, and the route points. All of that state is
// touched by a single event loop goroutine; network calls run in their own
// goroutines and post their results back to the loop, where results issued
// under an older selection are dropped.
package mappanel

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/MeKo-Tech/geoexplorer/internal/render"
	"github.com/MeKo-Tech/geoexplorer/internal/search"
	"github.com/MeKo-Tech/geoexplorer/internal/selection"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
)

// Status messages shown to the user.
const (
	MsgStatesFailed   = "Could not load states. Try again later."
	MsgStateFailed    = "Failed to draw state or load districts."
	MsgDistrictFailed = "Failed to draw district."
	MsgPlacesFailed   = "Could not load places for this level."
	MsgSelectState    = "Select a state first."
)

// GeoSource answers the area, boundary and place queries.
type GeoSource interface {
	ListTopLevelAreas(ctx context.Context, countryCode string) ([]types.AdminArea, error)
	ListSubAreas(ctx context.Context, parentID int64) ([]types.AdminArea, error)
	ListSettlements(ctx context.Context, parentID int64, kinds []types.SettlementKind) ([]types.Settlement, error)
	FetchBoundary(ctx context.Context, areaID int64) (types.Boundary, error)
}

// RouteSource computes a route between two points. A nil result with a nil
// error means no route exists.
type RouteSource interface {
	ComputeRoute(ctx context.Context, start, end *types.LatLon) (*types.RouteResult, error)
}

// Config configures a Panel.
type Config struct {
	Geo     GeoSource
	Router  RouteSource
	Surface render.Surface
	Logger  *slog.Logger
	// CountryCode is the ISO 3166-1 alpha-2 code whose states are listed
	CountryCode string
	// Initial is the selection to start from, usually decoded from a URL
	Initial selection.State
	Render  render.Options
}

// RouteInfo is the display summary of the current route.
type RouteInfo struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}

// Snapshot is a read-only view of the panel after one processed event.
type Snapshot struct {
	Selection       selection.State   `json:"selection"`
	Start           *types.LatLon     `json:"start,omitempty"`
	End             *types.LatLon     `json:"end,omitempty"`
	Route           *RouteInfo        `json:"route,omitempty"`
	Query           string            `json:"query"`
	Error           string            `json:"error,omitempty"`
	PointMode       render.PointMode  `json:"point_mode"`
	States          []types.AdminArea `json:"states"`
	Districts       []types.AdminArea `json:"districts"`
	SettlementCount int               `json:"settlement_count"`
	Version         uint64            `json:"version"`
	Heat            bool              `json:"heat"`
	Loading         bool              `json:"loading"`
}

// Panel is one explorer map. Its methods are safe for concurrent use; they
// enqueue work for the loop started by Run and return immediately.
type Panel struct {
	geo      GeoSource
	router   RouteSource
	renderer *render.Renderer
	logger   *slog.Logger
	country  string

	cmds chan command
	ctx  context.Context
	done chan struct{}

	// loop-owned state
	sel          selection.State
	states       []types.AdminArea
	districts    []types.AdminArea
	settlements  []types.Settlement
	start        *types.LatLon
	end          *types.LatLon
	route        *types.RouteResult
	errMsg       string
	seq          *sequence
	districtsSeq *sequence
	districtsIdx int
	stateEpoch   uint64
	selEpoch     uint64
	pointsEpoch  uint64
	routeEpoch   uint64
	version      uint64
	statesBusy   bool
	pointsBusy   bool
	runningStart sync.Once

	mu        sync.RWMutex
	snap      Snapshot
	listeners []func(Snapshot)
}

// New creates a panel. Call Run to start processing.
func New(cfg Config) *Panel {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "IN"
	}
	if cfg.Initial.Level == "" {
		cfg.Initial = selection.Default()
	}
	if cfg.Render.Logger == nil {
		cfg.Render.Logger = cfg.Logger
	}

	p := &Panel{
		geo:      cfg.Geo,
		router:   cfg.Router,
		renderer: render.New(cfg.Surface, cfg.Render),
		logger:   cfg.Logger.With("component", "mappanel"),
		country:  cfg.CountryCode,
		cmds:     make(chan command, 256),
		ctx:      context.Background(),
		done:     make(chan struct{}),
		sel:      cfg.Initial,
	}
	p.renderer.SetBasemap(p.sel.BasemapInfo())
	p.publish()
	return p
}

// Run processes commands and fetch results until ctx is done. Fetches in
// flight see ctx as their context.
func (p *Panel) Run(ctx context.Context) {
	started := false
	p.runningStart.Do(func() { started = true })
	if !started {
		p.logger.Warn("panel already running")
		return
	}

	p.ctx = ctx
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("panel stopped", "reason", ctx.Err())
			return
		case cmd := <-p.cmds:
			cmd.fn()
			if !cmd.quiet {
				p.publish()
			}
		}
	}
}

// Done is closed when Run returns.
func (p *Panel) Done() <-chan struct{} {
	return p.done
}

// command is one unit of loop work. Quiet commands change no state and
// publish no snapshot.
type command struct {
	fn    func()
	quiet bool
}

// post enqueues fn for the loop. It gives up once the loop has stopped.
func (p *Panel) post(fn func()) {
	p.enqueue(command{fn: fn})
}

func (p *Panel) enqueue(cmd command) {
	select {
	case p.cmds <- cmd:
	case <-p.done:
	}
}

// spawn runs fetch in its own goroutine and posts the returned apply
// function back to the loop. Must be called from the loop.
func (p *Panel) spawn(fetch func(ctx context.Context) func()) {
	ctx := p.ctx
	go func() {
		apply := fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		p.post(apply)
	}()
}

// Snapshot returns the view after the last processed event.
func (p *Panel) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// OnChange registers fn to receive every new snapshot. fn runs on the
// loop goroutine and must not block.
func (p *Panel) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

func (p *Panel) loading() bool {
	if p.statesBusy || p.pointsBusy {
		return true
	}
	return p.seq != nil && !p.seq.finished()
}

func (p *Panel) publish() {
	p.version++

	snap := Snapshot{
		Selection:       p.sel,
		Query:           p.sel.QueryString(),
		States:          slices.Clone(p.states),
		Districts:       slices.Clone(p.districts),
		SettlementCount: len(p.settlements),
		Start:           copyPoint(p.start),
		End:             copyPoint(p.end),
		PointMode:       p.renderer.PointMode(),
		Heat:            p.renderer.Heat(),
		Loading:         p.loading(),
		Error:           p.errMsg,
		Version:         p.version,
	}
	if p.route != nil {
		snap.Route = &RouteInfo{DistanceKm: p.route.DistanceKm, DurationMin: p.route.DurationMin}
	}

	p.mu.Lock()
	p.snap = snap
	listeners := slices.Clone(p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func copyPoint(p *types.LatLon) *types.LatLon {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Init loads the state list and then replays the initial selection.
func (p *Panel) Init() { p.post(p.loadStates) }

// SelectState chooses a state; 0 clears the selection.
func (p *Panel) SelectState(id int64) { p.post(func() { p.selectState(id, 0) }) }

// SelectDistrict chooses a district of the current state; 0 clears it.
func (p *Panel) SelectDistrict(id int64) { p.post(func() { p.selectDistrict(id) }) }

// SetLevel switches the granularity.
func (p *Panel) SetLevel(l selection.Level) { p.post(func() { p.setLevel(l) }) }

// SetBasemap switches the background.
func (p *Panel) SetBasemap(id string) { p.post(func() { p.setBasemap(id) }) }

// SetPointMode switches between clustered and plain points.
func (p *Panel) SetPointMode(m render.PointMode) {
	p.post(func() {
		if err := p.renderer.SetPointMode(m); err != nil {
			p.logger.Debug("ignoring point mode", "error", err)
		}
	})
}

// SetHeat toggles the heat overlay.
func (p *Panel) SetHeat(on bool) { p.post(func() { p.renderer.SetHeat(on) }) }

// SetStart places the route start and drops the end point.
func (p *Panel) SetStart(pt types.LatLon) { p.post(func() { p.setStart(pt) }) }

// SetEnd places the route end.
func (p *Panel) SetEnd(pt types.LatLon) { p.post(func() { p.setEnd(pt) }) }

// PickPlace centres the map on a search result and makes it the route start.
func (p *Panel) PickPlace(pl search.Place) {
	p.post(func() {
		p.renderer.SetView(pl.LatLon(), render.PickZoom)
		p.setStart(pl.LatLon())
	})
}

// ClearRoute drops both route points.
func (p *Panel) ClearRoute() { p.post(p.clearRoute) }

// Sync waits until every command posted before it has been processed.
func (p *Panel) Sync(ctx context.Context) error {
	ch := make(chan struct{})
	p.enqueue(command{fn: func() { close(ch) }, quiet: true})
	select {
	case <-ch:
		return nil
	case <-p.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}
