package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plsort/internal/auth"
	"github.com/desertthunder/plsort/internal/services"
	"github.com/desertthunder/plsort/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in with Spotify and stores the session, replacing any earlier session of the same user.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	gate, err := r.gate(ctx)
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	cred := auth.CredentialFromToken(token, r.oauth.Scopes)
	user, err := r.catalog.CurrentUser(ctx, services.StaticCredential(cred))
	if err != nil {
		return fmt.Errorf("failed to resolve Spotify user: %w", err)
	}

	if n, err := r.store.DeleteByUser(ctx, user.ID); err != nil {
		return err
	} else if n > 0 {
		r.logger.Debug("replaced previous sessions", "user", user.ID, "count", n)
	}

	if _, err := gate.StartSession(ctx, user.ID, user.DisplayName, cred); err != nil {
		return err
	}

	r.writePlainln("✓ Signed in as %s (%s)", user.DisplayName, user.ID)
	r.writePlain("You can now use: plsort playlists\n")
	return nil
}

// authStatus is the JSON output of [Runner.AuthStatus].
type authStatus struct {
	SignedIn    bool      `json:"signedIn"`
	UserID      string    `json:"userId,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
	Scopes      []string  `json:"scopes,omitempty"`
}

// AuthStatus reports the signed-in user. An expired credential is refreshed first.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	gate, err := r.gate(ctx)
	if err != nil {
		return err
	}

	status := authStatus{}
	session, err := r.currentSession(ctx, gate)
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		r.logger.Debug("not signed in", "error", err)
	case err != nil:
		return err
	default:
		cred, err := session.Credential(ctx)
		if err != nil {
			return err
		}
		status = authStatus{
			SignedIn:    true,
			UserID:      session.UserID(),
			DisplayName: session.DisplayName(),
			ExpiresAt:   cred.Expiry,
			Scopes:      cred.Scopes,
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !status.SignedIn {
		return r.writePlain("✗ Not signed in. Run 'plsort auth login'.\n")
	}

	r.writePlain("✓ Signed in as %s (%s)\n", status.DisplayName, status.UserID)
	if !status.ExpiresAt.IsZero() {
		r.writePlain("Credential expires: %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// AuthLogout deletes the signed-in session. Signing out when not signed in is not an error.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	gate, err := r.gate(ctx)
	if err != nil {
		return err
	}

	latest, err := r.store.Latest(ctx)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return r.writePlain("Not signed in.\n")
	} else if err != nil {
		return err
	}

	if err := gate.EndSession(ctx, latest.ID()); err != nil {
		return err
	}
	if _, err := r.store.DeleteByUser(ctx, latest.UserID()); err != nil {
		return err
	}

	return r.writePlain("✓ Signed out %s\n", latest.DisplayName())
}
