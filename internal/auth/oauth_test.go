package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/shared"
	"golang.org/x/oauth2"
)

func TestOAuth(t *testing.T) {
	t.Run("NewOAuthConfig", func(t *testing.T) {
		cfg := NewOAuthConfig(shared.SpotifyConfig{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURI:  "http://127.0.0.1:3000/auth/callback",
		})

		if cfg.ClientID != "id" || cfg.ClientSecret != "secret" {
			t.Errorf("unexpected client credentials %s/%s", cfg.ClientID, cfg.ClientSecret)
		}
		if cfg.Endpoint.TokenURL != spotifyTokenURL {
			t.Errorf("expected token URL %s, got %s", spotifyTokenURL, cfg.Endpoint.TokenURL)
		}
		for _, scope := range models.AllScopes() {
			if !slices.Contains(cfg.Scopes, scope) {
				t.Errorf("expected scope %s to be requested", scope)
			}
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		newRefresher := func(handler http.HandlerFunc) (*OAuthRefresher, func()) {
			srv := httptest.NewServer(handler)
			cfg := &oauth2.Config{
				ClientID:     "id",
				ClientSecret: "secret",
				Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
			}
			return NewOAuthRefresher(cfg), srv.Close
		}

		t.Run("Success keeps refresh token", func(t *testing.T) {
			refresher, stop := newRefresher(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if r.Form.Get("grant_type") != "refresh_token" {
					t.Errorf("expected refresh_token grant, got %s", r.Form.Get("grant_type"))
				}
				if r.Form.Get("refresh_token") != "refresh" {
					t.Errorf("expected refresh token 'refresh', got %s", r.Form.Get("refresh_token"))
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600,"scope":"playlist-read-private playlist-modify-public"}`)
			})
			defer stop()

			cred, err := refresher.Refresh(context.Background(), models.Credential{
				AccessToken:  "old",
				RefreshToken: "refresh",
				Expiry:       time.Now().Add(-time.Hour),
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cred.AccessToken != "fresh" {
				t.Errorf("expected fresh token, got %s", cred.AccessToken)
			}
			if cred.RefreshToken != "refresh" {
				t.Errorf("expected refresh token to be kept, got %s", cred.RefreshToken)
			}
			if !cred.HasScopes(models.ScopePlaylistReadPrivate, models.ScopePlaylistModifyPublic) {
				t.Errorf("expected scopes from response, got %v", cred.Scopes)
			}
			if !cred.Expiry.After(time.Now()) {
				t.Errorf("expected future expiry, got %v", cred.Expiry)
			}
		})

		t.Run("Token endpoint failure", func(t *testing.T) {
			refresher, stop := newRefresher(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":"invalid_grant"}`)
			})
			defer stop()

			_, err := refresher.Refresh(context.Background(), models.Credential{AccessToken: "old", RefreshToken: "revoked"})
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
		})

		t.Run("Missing refresh token", func(t *testing.T) {
			refresher := NewOAuthRefresher(&oauth2.Config{})
			_, err := refresher.Refresh(context.Background(), models.Credential{AccessToken: "old"})
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
		})
	})

	t.Run("CredentialFromToken falls back to known scopes", func(t *testing.T) {
		tok := &oauth2.Token{AccessToken: "a", TokenType: "Bearer"}
		cred := CredentialFromToken(tok, models.ReadScopes)
		if !cred.HasScopes(models.ReadScopes...) {
			t.Errorf("expected fallback scopes, got %v", cred.Scopes)
		}
	})
}
