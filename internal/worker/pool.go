// Package worker fetches settlements for many areas in parallel.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/geoexplorer/internal/types"
)

// Fetcher lists the settlements inside an area.
type Fetcher interface {
	ListSettlements(ctx context.Context, parentID int64, kinds []types.SettlementKind) ([]types.Settlement, error)
}

// Task is one area to sweep.
type Task struct {
	Area  types.AdminArea
	Kinds []types.SettlementKind
}

// Result is the outcome of one task.
type Result struct {
	Err         error
	Task        Task
	Settlements []types.Settlement
	Elapsed     time.Duration
}

// ProgressFunc is called after each task completes, from the goroutine
// running Pool.Run, with that task's result and the running count.
type ProgressFunc func(r Result, completed, total int)

// Config configures the worker pool.
type Config struct {
	Fetcher    Fetcher
	OnProgress ProgressFunc
	Workers    int
}

// Pool runs area sweeps with bounded concurrency.
type Pool struct {
	fetcher    Fetcher
	onProgress ProgressFunc
	workers    int
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		fetcher:    cfg.Fetcher,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and returns one result per task, in task order.
// It blocks until every task completes or the context is cancelled; tasks
// not started before cancellation carry ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	type indexed struct {
		res Result
		i   int
	}

	taskCh := make(chan int, len(tasks))
	resultCh := make(chan indexed, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskCh {
				resultCh <- indexed{i: i, res: p.run(ctx, tasks[i])}
			}
		}()
	}

	for i := range tasks {
		taskCh <- i
	}
	close(taskCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, len(tasks))
	completed := 0
	for r := range resultCh {
		results[r.i] = r.res
		completed++
		if p.onProgress != nil {
			p.onProgress(r.res, completed, len(tasks))
		}
	}
	return results
}

func (p *Pool) run(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return Result{Task: task, Err: err}
	}

	start := time.Now()
	ss, err := p.fetcher.ListSettlements(ctx, task.Area.ID, task.Kinds)
	return Result{
		Task:        task,
		Settlements: ss,
		Err:         err,
		Elapsed:     time.Since(start),
	}
}

// Merge flattens successful results into one list, keeping the first
// occurrence of each settlement id. Areas that share a border can both
// report the same place.
func Merge(results []Result) []types.Settlement {
	seen := make(map[int64]bool)
	var out []types.Settlement
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, s := range r.Settlements {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			out = append(out, s)
		}
	}
	return out
}
