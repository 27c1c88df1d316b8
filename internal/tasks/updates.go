package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a reorder.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchTracks Phase = iota
	SortTracks
	WriteTracks
	Complete
	BulkReorder
)

func (p Phase) String() string {
	switch p {
	case FetchTracks:
		return "fetch_tracks"
	case SortTracks:
		return "sort_tracks"
	case WriteTracks:
		return "write_tracks"
	case Complete:
		return "complete"
	case BulkReorder:
		return "bulk_reorder"
	default:
		return ""
	}
}

func fetchTracksUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching tracks for playlist %s...", playlistID),
	}
}

func sortTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SortTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sorting %d tracks...", count),
	}
}

func writeBatchUpdate(index, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTracks,
		Step:    index + 1,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Batch written", index+1, total),
	}
}

func completeUpdate(res *ReorderResult) ProgressUpdate {
	msg := fmt.Sprintf("Playlist sorted (%d tracks)", res.TrackCount)
	if res.Unchanged {
		msg = fmt.Sprintf("Playlist already sorted (%d tracks)", res.TrackCount)
	}
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    res,
	}
}

func bulkCompletedUpdate(step, total int, res PlaylistReorderResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BulkReorder,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, res.PlaylistID, res.Result.TrackCount),
		Data:    res,
	}
}

func bulkFailedUpdate(step, total int, res PlaylistReorderResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BulkReorder,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.PlaylistID, res.Err),
		Data:    res,
	}
}
