package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plsort/internal/formatter"
	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/ordering"
	"github.com/desertthunder/plsort/internal/shared"
	"github.com/urfave/cli/v3"
)

// Tracks prints or exports a playlist's tracks in stored order next to their sorted positions.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	if id == "" {
		return fmt.Errorf("%w: --id is required", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	gate, err := r.gate(ctx)
	if err != nil {
		return err
	}
	session, err := r.currentSession(ctx, gate)
	if err != nil {
		return err
	}

	playlist := models.Playlist{ID: id, Name: id}
	for p, err := range r.catalog.ListPlaylists(ctx, session) {
		if err != nil {
			return fmt.Errorf("failed to list playlists: %w", err)
		}
		if p.ID == id {
			playlist = p
			break
		}
	}

	tracks, err := r.catalog.ListAllTracks(ctx, session, id)
	if err != nil {
		return fmt.Errorf("failed to fetch tracks: %w", err)
	}
	playlist.TrackCount = len(tracks)

	listing := &formatter.Listing{
		Playlist:        playlist,
		Tracks:          tracks,
		SortedPositions: ordering.NewSorter(r.config.Sort.Tag()).Positions(tracks),
	}

	if cmd.Bool("save") || cmd.String("output") != "" {
		path, err := formatter.WriteExport(listing, format, cmd.String("output"))
		if err != nil {
			return err
		}
		return r.writePlain("Exported %d tracks to %s\n", len(tracks), path)
	}

	data, err := formatter.Export(listing, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}
