package services

import (
	"context"
	"iter"

	"github.com/desertthunder/plsort/internal/models"
)

// CredentialSource supplies the credential for a remote call. It is consulted immediately before every request
// so a refreshed or revoked credential takes effect on the next page or batch.
type CredentialSource interface {
	Credential(ctx context.Context) (models.Credential, error)
}

// StaticCredential is a [CredentialSource] that always returns the same credential.
type StaticCredential models.Credential

func (c StaticCredential) Credential(context.Context) (models.Credential, error) {
	return models.Credential(c), nil
}

// BatchFunc observes a successfully applied write batch. index is zero-based.
type BatchFunc func(index, total int)

// Catalog is the remote playlist catalog used by the reorder orchestrator and the HTTP API.
type Catalog interface {
	// ListPlaylists lazily yields the user's playlists, following pagination cursors.
	ListPlaylists(ctx context.Context, creds CredentialSource) iter.Seq2[models.Playlist, error]

	// ListAllTracks returns every track of a playlist in stored order. Any page failure fails the whole call.
	ListAllTracks(ctx context.Context, creds CredentialSource, playlistID string) ([]models.TrackRef, error)

	// ReplaceTracks overwrites the playlist with uris in batches. onBatch may be nil.
	ReplaceTracks(ctx context.Context, creds CredentialSource, playlistID string, uris []string, onBatch BatchFunc) error

	// BatchLimit returns the maximum number of URIs sent per write.
	BatchLimit() int

	// CurrentUser returns the profile that owns the credential.
	CurrentUser(ctx context.Context, creds CredentialSource) (*SpotifyUser, error)
}

// SpotifyUser is the subset of the Spotify user profile used to bind a session.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
