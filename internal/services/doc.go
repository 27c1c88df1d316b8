// Package services implements the remote playlist catalog ([Catalog]) on top of the Spotify Web API.
//
// # Credentials
//
// Operations take a [CredentialSource] rather than holding a token. The source is resolved right before
// every request, so a session refreshed or signed out mid-operation is honoured on the next page or batch.
// Missing, expired or under-scoped credentials fail with [shared.ErrUnauthorized] before any network I/O.
//
// # Pagination
//
// Playlists and tracks are read by following the "next" cursor Spotify returns until it is null.
// [SpotifyService.ListPlaylists] is lazy; [SpotifyService.ListAllTracks] collects every page and returns no
// partial result on failure.
//
// # Writes
//
// [SpotifyService.ReplaceTracks] sends at most 100 URIs per request: PUT for the first batch, POST for the rest.
// There is no transaction across batches, so a failure after the first batch yields a [PartialApplyError].
//
// # Error Handling
//
// Failures are classified with errors.Is / errors.As:
//   - [UpstreamError] : non-2xx response, matches [shared.ErrUpstream]
//   - [TransientError] : network failure with no response, matches [shared.ErrTransient]
//   - [PartialApplyError] : replace stopped mid-way, matches [shared.ErrPartialApply]
//
// Transient failures of GET and PUT are retried with exponential backoff. Appends are never retried
// because a lost response may still have appended the batch.
package services
