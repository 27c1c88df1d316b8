package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/plsort/internal/shared"
)

// BulkOpts contains configuration for reordering several playlists.
type BulkOpts struct {
	NumWorkers int // Concurrent playlists (default: 2, max: 5)
}

// PlaylistReorderResult is the outcome for one playlist of a bulk run.
type PlaylistReorderResult struct {
	PlaylistID string
	Result     *ReorderResult
	Err        error
}

// BulkReorderResult summarizes a bulk run.
type BulkReorderResult struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []PlaylistReorderResult // in completion order
}

// ReorderMany reorders several playlists with a small worker pool.
//
// Each playlist is its own run with the same guarantees as [PlaylistEngine.Reorder]; pages and batches within
// a playlist stay sequential. Failures are collected per playlist and do not stop the other runs. The shared
// rate limiter in the catalog client bounds the combined request rate.
func (e *PlaylistEngine) ReorderMany(ctx context.Context, sessionID string, ids []string, opts BulkOpts, progress chan<- ProgressUpdate) (*BulkReorderResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no playlist ids", shared.ErrMissingArgument)
	}
	if _, err := e.gate.RequireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 5 {
		opts.NumWorkers = 5
	}

	jobs := make(chan string, len(ids))
	results := make(chan PlaylistReorderResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.reorderWorker(ctx, &wg, sessionID, jobs, results)
	}

	for _, id := range ids {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &BulkReorderResult{Total: len(ids), Results: make([]PlaylistReorderResult, 0, len(ids))}
	for res := range results {
		summary.Results = append(summary.Results, res)
		step := len(summary.Results)
		if res.Err != nil {
			summary.Failed++
			e.sendProgress(progress, bulkFailedUpdate(step, len(ids), res))
		} else {
			summary.Succeeded++
			e.sendProgress(progress, bulkCompletedUpdate(step, len(ids), res))
		}
	}

	e.logger.Info("bulk reorder finished", "total", summary.Total, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, ctx.Err()
}

func (e *PlaylistEngine) reorderWorker(ctx context.Context, wg *sync.WaitGroup, sessionID string, jobs <-chan string, results chan<- PlaylistReorderResult) {
	defer wg.Done()
	for id := range jobs {
		if err := ctx.Err(); err != nil {
			results <- PlaylistReorderResult{PlaylistID: id, Err: err}
			continue
		}

		res, err := e.Reorder(ctx, sessionID, id, nil)
		results <- PlaylistReorderResult{PlaylistID: id, Result: res, Err: err}
	}
}
