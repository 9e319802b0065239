package mappanel

import (
	"context"

	"github.com/MeKo-Tech/geoexplorer/internal/metrics"
	"github.com/MeKo-Tech/geoexplorer/internal/selection"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
)

func (p *Panel) stale(op string) {
	metrics.StaleResultsTotal.WithLabelValues(op).Inc()
	p.logger.Debug("discarding stale result", "op", op, "epoch", p.selEpoch)
}

func (p *Panel) loadStates() {
	p.statesBusy = true
	p.errMsg = ""

	country := p.country
	p.spawn(func(ctx context.Context) func() {
		areas, err := p.geo.ListTopLevelAreas(ctx, country)
		return func() {
			p.statesBusy = false
			if err != nil {
				p.errMsg = MsgStatesFailed
				p.logger.Warn("loading states failed", "country", country, "error", err)
				return
			}
			p.states = areas
			p.logger.Info("states loaded", "country", country, "count", len(areas))

			if p.sel.StateID != 0 {
				p.selectState(p.sel.StateID, p.sel.DistrictID)
			}
		}
	})
}

// selectState starts the boundary → districts → settlements sequence for
// id. A non-zero thenDistrict is selected once the sequence has finished.
func (p *Panel) selectState(id int64, thenDistrict int64) {
	p.sel = p.sel.SelectState(id)
	p.stateEpoch++
	p.beginSelection()
	p.districts = nil

	log := p.logger.With("state_rel", id, "epoch", p.selEpoch)
	if id == 0 {
		p.renderer.ClearBoundary()
		log.Debug("state selection cleared")
		return
	}
	log.Debug("selecting state", "level", p.sel.Level)

	seq := newSequence(p.selEpoch, func(err error) {
		p.errMsg = MsgStateFailed
		log.Warn("state selection failed", "error", err)
	})
	if thenDistrict != 0 {
		seq.onDone = func() {
			switch {
			case p.seq != seq:
			case seq.failed:
				log.Debug("skipping district replay after failure", "district_rel", thenDistrict)
			default:
				p.selectDistrict(thenDistrict)
			}
		}
	}
	p.seq = seq

	p.addBoundaryStep(seq, id, selection.LevelState)

	districtsIdx := seq.add("districts")
	p.districtsSeq, p.districtsIdx = seq, districtsIdx
	stateEpoch := p.stateEpoch
	p.spawn(func(ctx context.Context) func() {
		ds, err := p.geo.ListSubAreas(ctx, id)
		return func() {
			if seq != p.seq && stateEpoch == p.stateEpoch {
				// A district of this state took over the sequence; the
				// list still belongs to the selected state.
				if err != nil {
					log.Warn("loading districts failed", "error", err)
					return
				}
				p.districts = ds
				log.Debug("districts loaded", "count", len(ds))
				return
			}
			p.completeStep(seq, districtsIdx, "list_districts", func() {
				p.districts = ds
				log.Debug("districts loaded", "count", len(ds))
			}, err)
		}
	})

	p.addSettlementsStep(seq, id)
}

// selectDistrict starts the boundary → settlements sequence for id.
func (p *Panel) selectDistrict(id int64) {
	next, err := p.sel.SelectDistrict(id)
	if err != nil {
		p.logger.Debug("ignoring district selection", "district_rel", id, "error", err)
		return
	}
	p.sel = next
	p.keepQueuedDistricts()
	p.beginSelection()

	log := p.logger.With("state_rel", p.sel.StateID, "district_rel", id, "epoch", p.selEpoch)
	if id == 0 {
		p.renderer.ClearBoundary()
		log.Debug("district selection cleared")
		return
	}
	log.Debug("selecting district", "level", p.sel.Level)

	seq := newSequence(p.selEpoch, func(err error) {
		p.errMsg = MsgDistrictFailed
		log.Warn("district selection failed", "error", err)
	})
	p.seq = seq

	p.addBoundaryStep(seq, id, selection.LevelDistrict)
	p.addSettlementsStep(seq, id)
}

// keepQueuedDistricts applies a districts list that already arrived but
// still waits behind the state boundary in the current sequence.
func (p *Panel) keepQueuedDistricts() {
	if p.seq == nil || p.seq != p.districtsSeq {
		return
	}
	if apply := p.seq.queued(p.districtsIdx); apply != nil {
		apply()
	}
}

// beginSelection invalidates everything issued for the previous selection,
// including the points the renderer retains for redraws.
func (p *Panel) beginSelection() {
	if p.seq != nil && !p.seq.finished() {
		p.logger.Debug("abandoning selection", "epoch", p.seq.epoch, "pending", p.seq.pending())
	}
	p.selEpoch++
	p.pointsEpoch++
	p.pointsBusy = false
	p.clearPoints()
	p.errMsg = ""
	p.seq = nil
}

func (p *Panel) addBoundaryStep(seq *sequence, id int64, tier selection.Level) {
	idx := seq.add("boundary")
	p.spawn(func(ctx context.Context) func() {
		b, err := p.geo.FetchBoundary(ctx, id)
		return func() {
			p.completeStep(seq, idx, "fetch_boundary", func() {
				p.renderer.DrawBoundary(b, tier)
			}, err)
		}
	})
}

// addSettlementsStep loads the places of the active level inside scope, or
// clears the points when the level shows areas. A level change made while
// the sequence runs supersedes this step; it then completes as a no-op.
func (p *Panel) addSettlementsStep(seq *sequence, scope int64) {
	idx := seq.add("settlements")
	epoch := p.pointsEpoch
	info := p.sel.Level.Info()

	if !info.IsPointLevel() {
		seq.complete(idx, func() {
			if epoch == p.pointsEpoch {
				p.clearPoints()
			}
		}, nil)
		return
	}

	kinds := info.Kinds
	p.spawn(func(ctx context.Context) func() {
		ss, err := p.geo.ListSettlements(ctx, scope, kinds)
		return func() {
			if epoch != p.pointsEpoch {
				if p.seq == seq {
					seq.complete(idx, nil, nil)
				}
				p.stale("list_settlements")
				return
			}
			p.completeStep(seq, idx, "list_settlements", func() {
				p.settlements = ss
				p.renderer.DrawSettlements(ss)
			}, err)
		}
	})
}

func (p *Panel) completeStep(seq *sequence, idx int, op string, apply func(), err error) {
	if seq != p.seq {
		p.stale(op)
		return
	}
	seq.complete(idx, apply, err)
}

func (p *Panel) clearPoints() {
	p.settlements = nil
	p.renderer.ClearPoints()
}

func (p *Panel) setLevel(l selection.Level) {
	next, err := p.sel.SetLevel(l)
	if err != nil {
		p.logger.Debug("ignoring level", "level", l, "error", err)
		return
	}
	p.sel = next
	p.pointsEpoch++
	p.pointsBusy = false
	p.errMsg = ""

	info := l.Info()
	if !info.IsPointLevel() {
		p.clearPoints()
		return
	}

	scope := p.sel.Scope()
	if scope == 0 {
		p.errMsg = MsgSelectState
		return
	}

	epoch := p.pointsEpoch
	kinds := info.Kinds
	p.pointsBusy = true
	log := p.logger.With("level", l, "scope_rel", scope, "epoch", epoch)
	log.Debug("loading places for level")

	p.spawn(func(ctx context.Context) func() {
		ss, err := p.geo.ListSettlements(ctx, scope, kinds)
		return func() {
			if epoch != p.pointsEpoch {
				p.stale("list_settlements")
				return
			}
			p.pointsBusy = false
			if err != nil {
				p.errMsg = MsgPlacesFailed
				log.Warn("loading places failed", "error", err)
				return
			}
			p.settlements = ss
			p.renderer.DrawSettlements(ss)
		}
	})
}

func (p *Panel) setBasemap(id string) {
	next, err := p.sel.SetBasemap(id)
	if err != nil {
		p.logger.Debug("ignoring basemap", "basemap", id, "error", err)
		return
	}
	p.sel = next
	p.renderer.SetBasemap(p.sel.BasemapInfo())
}

func (p *Panel) setStart(pt types.LatLon) {
	if !pt.Valid() {
		p.logger.Debug("ignoring invalid start", "point", pt.String())
		return
	}
	p.start = &pt
	p.end = nil
	p.resetRoute()
	p.renderer.DrawRings(p.start)
}

func (p *Panel) setEnd(pt types.LatLon) {
	if !pt.Valid() {
		p.logger.Debug("ignoring invalid end", "point", pt.String())
		return
	}
	if p.start == nil {
		p.logger.Debug("ignoring end without start", "point", pt.String())
		return
	}
	p.end = &pt
	p.resetRoute()
	p.computeRoute()
}

func (p *Panel) clearRoute() {
	p.start = nil
	p.end = nil
	p.resetRoute()
	p.renderer.DrawRings(nil)
}

// resetRoute drops the current route and invalidates any in flight.
func (p *Panel) resetRoute() {
	p.routeEpoch++
	p.route = nil
	p.renderer.ClearRoute()
}

// computeRoute requests a route for the current pair. Route failures are
// logged only; the route layer simply stays empty.
func (p *Panel) computeRoute() {
	if p.start == nil || p.end == nil || p.router == nil {
		return
	}

	epoch := p.routeEpoch
	start, end := *p.start, *p.end
	p.spawn(func(ctx context.Context) func() {
		res, err := p.router.ComputeRoute(ctx, &start, &end)
		return func() {
			if epoch != p.routeEpoch {
				p.stale("route")
				return
			}
			if err != nil {
				p.logger.Debug("route failed", "error", err)
				return
			}
			if res == nil {
				p.logger.Debug("no route between points", "start", start.String(), "end", end.String())
			}
			p.route = res
			p.renderer.DrawRoute(res)
		}
	})
}
