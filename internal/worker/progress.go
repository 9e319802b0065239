package worker

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/MeKo-Tech/geoexplorer/internal/types"
)

// FailedArea is a district whose settlement query failed.
type FailedArea struct {
	Err  error
	Name string
	ID   int64
}

// Summary is the outcome of a sweep so far.
type Summary struct {
	// Places counts reported settlements per kind, before Merge removes
	// places shared by neighbouring areas.
	Places    map[types.SettlementKind]int
	Failed    []FailedArea
	Elapsed   time.Duration
	Total     int
	Completed int
	Slowest   time.Duration
}

// Progress logs one line per swept area and keeps the counts for the
// final summary. It is safe for concurrent use.
type Progress struct {
	logger *slog.Logger
	now    func() time.Time
	start  time.Time
	places map[types.SettlementKind]int
	failed []FailedArea
	mu     sync.Mutex

	total     int
	completed int
	slowest   time.Duration
	// perArea logs every finished area at Info instead of Debug
	perArea bool
}

// NewProgress creates a tracker for a sweep of total areas.
func NewProgress(logger *slog.Logger, total int, perArea bool) *Progress {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Progress{
		logger:  logger.With("component", "sweep"),
		now:     time.Now,
		places:  make(map[types.SettlementKind]int),
		total:   total,
		perArea: perArea,
	}
	p.start = p.now()
	return p
}

// Record books the result of one area.
func (p *Progress) Record(r Result, completed, total int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.slowest = max(p.slowest, r.Elapsed)
	var kinds map[types.SettlementKind]int
	if r.Err != nil {
		p.failed = append(p.failed, FailedArea{ID: r.Task.Area.ID, Name: r.Task.Area.Name, Err: r.Err})
	} else {
		kinds = countKinds(r.Settlements)
		for k, n := range kinds {
			p.places[k] += n
		}
	}
	p.mu.Unlock()

	log := p.logger.With(
		"district_rel", r.Task.Area.ID,
		"district", r.Task.Area.Name,
		"done", completed,
		"total", total,
		"elapsed", r.Elapsed.Round(time.Millisecond),
	)
	if r.Err != nil {
		log.Warn("district failed", "error", r.Err)
		return
	}

	level := slog.LevelDebug
	if p.perArea {
		level = slog.LevelInfo
	}
	attrs := []any{"places", len(r.Settlements)}
	for _, k := range slices.Sorted(maps.Keys(kinds)) {
		attrs = append(attrs, string(k), kinds[k])
	}
	log.Log(context.Background(), level, "district swept", attrs...)
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Record
}

// Summary returns the counts recorded so far.
func (p *Progress) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Summary{
		Places:    maps.Clone(p.places),
		Failed:    slices.Clone(p.failed),
		Elapsed:   p.now().Sub(p.start),
		Total:     p.total,
		Completed: p.completed,
		Slowest:   p.slowest,
	}
}

// Done logs the summary of the sweep.
func (p *Progress) Done() Summary {
	s := p.Summary()

	attrs := []any{
		"districts", s.Total,
		"swept", s.Completed - len(s.Failed),
		"failed", len(s.Failed),
		"elapsed", s.Elapsed.Round(time.Millisecond),
		"slowest", s.Slowest.Round(time.Millisecond),
	}
	for _, k := range slices.Sorted(maps.Keys(s.Places)) {
		attrs = append(attrs, string(k), s.Places[k])
	}
	p.logger.Info("sweep finished", attrs...)
	return s
}

func countKinds(ss []types.Settlement) map[types.SettlementKind]int {
	out := make(map[types.SettlementKind]int)
	for _, s := range ss {
		out[s.Kind]++
	}
	return out
}
