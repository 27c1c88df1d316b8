package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/plsort/internal/services"
	"github.com/desertthunder/plsort/internal/shared"
	"github.com/desertthunder/plsort/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sort reorders one or more playlists by track name.
//
// A single playlist reports every phase as it happens; several playlists run through
// [tasks.PlaylistEngine.ReorderMany] and report one line per playlist.
func (r *Runner) Sort(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.StringSlice("id")
	all := cmd.Bool("all")
	if len(ids) == 0 && !all {
		return fmt.Errorf("%w: --id or --all is required", shared.ErrMissingArgument)
	}

	gate, err := r.gate(ctx)
	if err != nil {
		return err
	}
	session, err := r.currentSession(ctx, gate)
	if err != nil {
		return err
	}
	engine := r.engine(gate)

	if all {
		for p, err := range r.catalog.ListPlaylists(ctx, session) {
			if err != nil {
				return fmt.Errorf("failed to list playlists: %w", err)
			}
			if p.OwnerID == session.UserID() {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) == 0 {
			return r.writePlain("No playlists owned by %s\n", session.UserID())
		}
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if !cmd.Bool("json") {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	if len(ids) == 1 {
		result, err := engine.Reorder(ctx, session.ID(), ids[0], progress)
		close(progress)
		wg.Wait()
		return r.reportOne(cmd, result, err)
	}

	bulk, err := engine.ReorderMany(ctx, session.ID(), ids, tasks.BulkOpts{NumWorkers: cmd.Int("workers")}, progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}
	return r.reportMany(cmd, bulk)
}

func (r *Runner) reportOne(cmd *cli.Command, result *tasks.ReorderResult, err error) error {
	if err != nil {
		var partial *services.PartialApplyError
		if errors.As(err, &partial) {
			r.writePlainln("⚠ %d of %d batches were written before the failure.", partial.Applied, partial.Total)
			r.writePlain("Run the same command again to finish sorting.\n")
		}
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Sort complete")
	r.writePlain("Playlist: %s\n", result.PlaylistID)
	r.writePlain("Tracks: %d\n", result.TrackCount)
	if result.Unchanged {
		return r.writePlain("Already in order, nothing written\n")
	}
	return r.writePlain("Batches written: %d/%d\n", result.AppliedBatches, result.TotalBatches)
}

type bulkReport struct {
	PlaylistID string               `json:"playlistId"`
	Result     *tasks.ReorderResult `json:"result,omitempty"`
	Error      string               `json:"error,omitempty"`
}

func (r *Runner) reportMany(cmd *cli.Command, bulk *tasks.BulkReorderResult) error {
	if cmd.Bool("json") {
		reports := make([]bulkReport, len(bulk.Results))
		for i, res := range bulk.Results {
			reports[i] = bulkReport{PlaylistID: res.PlaylistID, Result: res.Result}
			if res.Err != nil {
				reports[i].Error = res.Err.Error()
			}
		}
		if err := r.writeJSON(reports, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else {
		r.writePlainHeader("Sort complete")
		r.writePlain("Sorted: %d/%d\n", bulk.Succeeded, bulk.Total)
		for _, res := range bulk.Results {
			if res.Err != nil {
				r.writePlain("  ✗ %s: %v\n", res.PlaylistID, res.Err)
			}
		}
	}

	if bulk.Failed > 0 {
		return fmt.Errorf("%d of %d playlists failed to sort", bulk.Failed, bulk.Total)
	}
	return nil
}
