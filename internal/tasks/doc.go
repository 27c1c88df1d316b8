// Package tasks orchestrates playlist reordering with real-time progress reporting.
//
// # Reorder
//
// [PlaylistEngine.Reorder] runs one pass over a playlist:
//
//  1. Validate the session through the auth gate (no remote call when it fails)
//  2. Claim the playlist's in-flight slot, rejecting concurrent duplicates
//  3. Fetch every track, following pagination cursors
//  4. Refuse local or unavailable entries before anything is written
//  5. Sort by name and skip the write when the order is unchanged
//  6. Replace the playlist contents batch by batch
//
// There is no transaction across batches. A failure after the first batch leaves the playlist holding a prefix
// of the new order; the [ReorderResult] records how many batches landed. Runs are not resumed automatically.
//
// # Bulk Reorder
//
// [PlaylistEngine.ReorderMany] reorders several playlists with a bounded worker pool and collects per-playlist
// results.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates. The [ProgressUpdate] struct contains phase,
// step counters, messages, and optional data for advanced UI rendering. Updates use select with default to
// prevent blocking.
package tasks
