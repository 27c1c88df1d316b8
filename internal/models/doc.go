// Package models defines domain entities and persistence interfaces for the playlist sorting service.
//
// The package contains two categories of types:
//
// 1. Transient values: re-read from Spotify on every reorder and never persisted
//   - [Playlist] : Playlist metadata from the remote catalog
//   - [TrackRef] : Minimal (URI, name) pair used for ordering and replacement
//
// 2. Session state: the only data the service owns
//   - [Credential] : Bearer token plus granted scopes and expiry
//   - [Session] : One authenticated user's access, bound to a [Credential]
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
