package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/shared"
)

// Gate validates sessions before any remote call and keeps their credentials fresh.
type Gate struct {
	store     Store
	refresher Refresher
	logger    *log.Logger
	now       func() time.Time
	locksMu   sync.Mutex
	locks     map[string]*sessionLock
}

// sessionLock serializes refreshes of one session. held counts the goroutines holding or waiting on it.
type sessionLock struct {
	sync.Mutex
	held int
}

// NewGate creates a [Gate] over store. refresher may be nil, in which case expired credentials are rejected.
func NewGate(store Store, refresher Refresher, logger *log.Logger) *Gate {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Gate{
		store:     store,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
		locks:     map[string]*sessionLock{},
	}
}

// lockSession blocks until the caller owns sessionID's refresh lock and returns its release func.
func (g *Gate) lockSession(sessionID string) func() {
	g.locksMu.Lock()
	l, ok := g.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		g.locks[sessionID] = l
	}
	l.held++
	g.locksMu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		g.locksMu.Lock()
		if l.held--; l.held == 0 {
			delete(g.locks, sessionID)
		}
		g.locksMu.Unlock()
	}
}

// Session is a validated capability for one user's access. It is cheap to copy around and never
// holds the credential itself.
type Session struct {
	id          string
	userID      string
	displayName string
	gate        *Gate
}

func (s *Session) ID() string          { return s.id }
func (s *Session) UserID() string      { return s.userID }
func (s *Session) DisplayName() string { return s.displayName }

// Credential returns the session's current credential, re-read from the store and refreshed if it expired.
func (s *Session) Credential(ctx context.Context) (models.Credential, error) {
	rec, err := s.gate.load(ctx, s.id)
	if err != nil {
		return models.Credential{}, err
	}
	return rec.Credential(), nil
}

// RequireSession returns the session identified by sessionID when it carries a usable credential.
//
// Fails with [shared.ErrUnauthorized] when the ID is empty or unknown, the credential is missing, or it is
// expired and cannot be refreshed. Only the refresh itself may touch the network.
func (g *Gate) RequireSession(ctx context.Context, sessionID string) (*Session, error) {
	rec, err := g.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:          rec.ID(),
		userID:      rec.UserID(),
		displayName: rec.DisplayName(),
		gate:        g,
	}, nil
}

// StartSession stores a new session for a signed-in user and returns its record.
func (g *Gate) StartSession(ctx context.Context, userID, displayName string, cred models.Credential) (*models.Session, error) {
	rec := models.NewSession(userID, displayName, cred)
	if err := g.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	g.logger.Info("session started", "session", rec.ID(), "user", userID)
	return rec, nil
}

// EndSession deletes the session. Unknown IDs are ignored.
func (g *Gate) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := g.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	g.logger.Info("session ended", "session", sessionID)
	return nil
}

func (g *Gate) load(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: no session", shared.ErrUnauthorized)
	}

	rec, err := g.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cred := rec.Credential()
	if cred.IsZero() {
		return nil, fmt.Errorf("%w: session has no credential", shared.ErrUnauthorized)
	}
	if !cred.Expired(g.now()) {
		return rec, nil
	}

	return g.refresh(ctx, sessionID)
}

func (g *Gate) get(ctx context.Context, sessionID string) (*models.Session, error) {
	rec, err := g.store.Get(ctx, sessionID)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: %w", shared.ErrUnauthorized, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return rec, nil
}

// refresh serializes refreshes per session so concurrent requests on an expired session trigger one token
// grant, while other sessions refresh independently.
func (g *Gate) refresh(ctx context.Context, sessionID string) (*models.Session, error) {
	unlock := g.lockSession(sessionID)
	defer unlock()

	rec, err := g.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cred := rec.Credential()
	if !cred.Expired(g.now()) {
		return rec, nil
	}
	if g.refresher == nil || cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %w", shared.ErrUnauthorized, shared.ErrTokenExpired)
	}

	fresh, err := g.refresher.Refresh(ctx, cred)
	if err != nil {
		g.logger.Warn("credential refresh failed", "session", sessionID, "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrUnauthorized, err)
	}

	rec.SetCredential(fresh)
	rec.SetUpdatedAt(g.now().UTC())
	if err := g.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save refreshed credential: %w", err)
	}

	g.logger.Debug("credential refreshed", "session", sessionID, "expiry", fresh.Expiry)
	return rec, nil
}
