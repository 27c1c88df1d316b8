package auth

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Refresher exchanges an expired credential for a fresh one.
type Refresher interface {
	Refresh(ctx context.Context, cred models.Credential) (models.Credential, error)
}

// NewOAuthConfig builds the Spotify authorization-code [oauth2.Config] requesting read and modify playlist scopes.
func NewOAuthConfig(sp shared.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     sp.ClientID,
		ClientSecret: sp.ClientSecret,
		RedirectURL:  sp.RedirectURI,
		Scopes:       models.AllScopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

// OAuthRefresher implements [Refresher] with the refresh_token grant of an [oauth2.Config].
type OAuthRefresher struct {
	config *oauth2.Config
}

// NewOAuthRefresher creates an [OAuthRefresher].
func NewOAuthRefresher(config *oauth2.Config) *OAuthRefresher {
	return &OAuthRefresher{config: config}
}

// Refresh forces a refresh_token grant. The previous refresh token and scopes are kept when the
// token endpoint does not return new ones.
func (r *OAuthRefresher) Refresh(ctx context.Context, cred models.Credential) (models.Credential, error) {
	if cred.RefreshToken == "" {
		return models.Credential{}, fmt.Errorf("%w: no refresh token", shared.ErrRefreshFailed)
	}

	stale := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		Expiry:       time.Unix(1, 0),
	}

	token, err := r.config.TokenSource(ctx, stale).Token()
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	fresh := CredentialFromToken(token, cred.Scopes)
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cred.RefreshToken
	}
	return fresh, nil
}

// CredentialFromToken converts an [oauth2.Token] into a [models.Credential].
//
// Granted scopes come from the token response's "scope" field; fallback is used when the
// response omits it, which Spotify does on some refresh responses.
func CredentialFromToken(token *oauth2.Token, fallback []string) models.Credential {
	scopes := fallback
	if raw, ok := token.Extra("scope").(string); ok && raw != "" {
		scopes = models.ParseScopes(raw)
	}

	return models.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		Scopes:       slices.Clone(scopes),
		Expiry:       token.Expiry,
	}
}
