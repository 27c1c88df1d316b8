package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsort/internal/auth"
	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/ordering"
	"github.com/desertthunder/plsort/internal/services"
	"github.com/desertthunder/plsort/internal/shared"
	"github.com/patrickmn/go-cache"
	"golang.org/x/text/language"
)

// DefaultInFlightTTL bounds how long a crashed run can hold a playlist's in-flight slot.
const DefaultInFlightTTL = 10 * time.Minute

// ReorderResult is the outcome of one reorder run.
//
// When the run fails during the write phase, AppliedBatches and LastAppliedBatch describe how much of the new
// order the playlist already holds. LastAppliedBatch is -1 when no batch was applied.
type ReorderResult struct {
	RunID            string `json:"runId"`
	PlaylistID       string `json:"playlistId"`
	TrackCount       int    `json:"trackCount"`
	TotalBatches     int    `json:"totalBatches"`
	AppliedBatches   int    `json:"appliedBatches"`
	LastAppliedBatch int    `json:"lastAppliedBatch"`
	Unchanged        bool   `json:"unchanged"`
}

// Reorderer sorts a playlist in place on behalf of a session.
type Reorderer interface {
	// Reorder fetches every track of the playlist, sorts them by name and writes the order back.
	Reorder(ctx context.Context, sessionID, playlistID string, progress chan<- ProgressUpdate) (*ReorderResult, error)
}

// SessionGate resolves a session ID into a validated session.
type SessionGate interface {
	RequireSession(ctx context.Context, sessionID string) (*auth.Session, error)
}

// PlaylistEngine implements [Reorderer].
//
// A go-cache entry per playlist, holding the run ID, rejects concurrent duplicate runs. Its TTL only matters
// if a run never releases the slot; a run that outlives it only releases an entry it still owns.
type PlaylistEngine struct {
	gate     SessionGate
	catalog  services.Catalog
	sorter   *ordering.Sorter
	inFlight *cache.Cache
	slotMu   sync.Mutex
	logger   *log.Logger
}

var _ Reorderer = (*PlaylistEngine)(nil)

// NewPlaylistEngine creates a new PlaylistEngine. A nil sorter uses root collation and a non-positive ttl uses
// [DefaultInFlightTTL].
func NewPlaylistEngine(gate SessionGate, catalog services.Catalog, sorter *ordering.Sorter, ttl time.Duration, logger *log.Logger) *PlaylistEngine {
	if sorter == nil {
		sorter = ordering.NewSorter(language.Und)
	}
	if ttl <= 0 {
		ttl = DefaultInFlightTTL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &PlaylistEngine{
		gate:     gate,
		catalog:  catalog,
		sorter:   sorter,
		inFlight: cache.New(ttl, ttl),
		logger:   logger,
	}
}

func (e *PlaylistEngine) acquire(playlistID, runID string) bool {
	e.slotMu.Lock()
	defer e.slotMu.Unlock()
	return e.inFlight.Add(playlistID, runID, cache.DefaultExpiration) == nil
}

// release frees the playlist's slot unless it expired and another run has taken it since.
func (e *PlaylistEngine) release(playlistID, runID string) {
	e.slotMu.Lock()
	defer e.slotMu.Unlock()
	if owner, ok := e.inFlight.Get(playlistID); ok && owner == runID {
		e.inFlight.Delete(playlistID)
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Reorder replaces the playlist's stored order with the sorted order of the same tracks.
//
// The session is checked before anything else, so an invalid session makes no remote call. The run is refused
// before any write when a track is a local file or has no URI, and skips the write when the playlist is already
// in order. A failed write is not resumed: calling Reorder again re-fetches and re-sorts from scratch.
func (e *PlaylistEngine) Reorder(ctx context.Context, sessionID, playlistID string, progress chan<- ProgressUpdate) (*ReorderResult, error) {
	if e.catalog == nil || e.gate == nil {
		return nil, fmt.Errorf("%w: reorder engine not initialized", shared.ErrServiceUnavailable)
	}
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	session, err := e.gate.RequireSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	runID := shared.GenerateID()
	if !e.acquire(playlistID, runID) {
		return nil, fmt.Errorf("%w: %s", shared.ErrReorderInProgress, playlistID)
	}
	defer e.release(playlistID, runID)

	logger := shared.WithLogger(e.logger, "run", runID, "playlist", playlistID, "user", session.UserID())
	result := &ReorderResult{RunID: runID, PlaylistID: playlistID, LastAppliedBatch: -1}

	e.sendProgress(progress, fetchTracksUpdate(playlistID))
	tracks, err := e.catalog.ListAllTracks(ctx, session, playlistID)
	if err != nil {
		logger.Error("failed to fetch tracks", "error", err)
		return result, err
	}
	result.TrackCount = len(tracks)

	if err := checkSupported(tracks); err != nil {
		logger.Warn("refusing reorder", "error", err)
		return result, err
	}

	e.sendProgress(progress, sortTracksUpdate(len(tracks)))
	sorted := e.sorter.Sort(tracks)
	if slices.Equal(sorted, tracks) {
		result.Unchanged = true
		logger.Info("playlist already sorted", "tracks", len(tracks))
		e.sendProgress(progress, completeUpdate(result))
		return result, nil
	}

	uris := models.URIs(sorted)
	result.TotalBatches = len(services.Batches(uris, e.catalog.BatchLimit()))

	err = e.catalog.ReplaceTracks(ctx, session, playlistID, uris, func(index, total int) {
		result.AppliedBatches = index + 1
		result.LastAppliedBatch = index
		e.sendProgress(progress, writeBatchUpdate(index, total))
	})
	if err != nil {
		logger.Error("reorder failed", "applied", result.AppliedBatches, "total", result.TotalBatches, "error", err)
		return result, err
	}

	logger.Info("playlist sorted", "tracks", len(tracks), "batches", result.TotalBatches)
	e.sendProgress(progress, completeUpdate(result))
	return result, nil
}

// checkSupported rejects playlists whose entries cannot be re-added by URI.
func checkSupported(tracks []models.TrackRef) error {
	var bad int
	var first models.TrackRef
	for _, t := range tracks {
		if t.URI == "" || t.Local {
			if bad == 0 {
				first = t
			}
			bad++
		}
	}

	if bad == 0 {
		return nil
	}
	name := first.Name
	if name == "" {
		name = "unavailable track"
	}
	return fmt.Errorf("%w: %d local or unavailable (first: %q)", shared.ErrUnsupportedTrack, bad, name)
}
