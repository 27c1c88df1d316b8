package models

import (
	"slices"
	"strings"
	"time"
)

// Spotify scopes required by the playlist operations.
const (
	ScopePlaylistReadPrivate       = "playlist-read-private"
	ScopePlaylistReadCollaborative = "playlist-read-collaborative"
	ScopePlaylistModifyPublic      = "playlist-modify-public"
	ScopePlaylistModifyPrivate     = "playlist-modify-private"
)

// expirySkew treats a credential as expired slightly before its real expiry
// so a request started just before the deadline does not carry a dead token.
const expirySkew = 10 * time.Second

var (
	// ReadScopes must be granted to list playlists and their tracks.
	ReadScopes = []string{ScopePlaylistReadPrivate, ScopePlaylistReadCollaborative}
	// ModifyScopes must be granted to replace or append playlist tracks.
	ModifyScopes = []string{ScopePlaylistModifyPublic, ScopePlaylistModifyPrivate}
)

// AllScopes returns the scope set requested at sign-in.
func AllScopes() []string {
	return slices.Concat(ModifyScopes, ReadScopes)
}

// Credential is an opaque bearer token plus its granted scope set.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Scopes       []string  `json:"scopes"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

// IsZero reports whether no access token is present.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// Expired reports whether the credential is expired at now. A zero expiry never expires.
func (c Credential) Expired(now time.Time) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Add(expirySkew).Before(c.Expiry)
}

// Usable reports whether the credential has a token that is not expired at now.
func (c Credential) Usable(now time.Time) bool {
	return !c.IsZero() && !c.Expired(now)
}

// HasScopes reports whether every one of the given scopes was granted.
func (c Credential) HasScopes(scopes ...string) bool {
	for _, s := range scopes {
		if !slices.Contains(c.Scopes, s) {
			return false
		}
	}
	return true
}

// ParseScopes splits a space separated scope string as returned by the token endpoint.
func ParseScopes(s string) []string {
	return strings.Fields(s)
}
