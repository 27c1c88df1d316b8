package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/shared"
)

const sessionColumns = `id, user_id, display_name, access_token, refresh_token, token_type, scopes, expiry, created_at, updated_at`

// SessionRepository implements [models.Repository] for [models.Session] persistence.
type SessionRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Session] = (*SessionRepository)(nil)

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session, assigning a generated ID when it has none
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	if s.ID() == "" {
		s.SetID(shared.GenerateID())
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	cred := s.Credential()
	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID(), s.UserID(), s.DisplayName(),
		cred.AccessToken, cred.RefreshToken, cred.TokenType, strings.Join(cred.Scopes, " "), nullTime(cred.Expiry),
		s.CreatedAt(), s.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID. Unknown IDs return an error wrapping [shared.ErrSessionNotFound].
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

// Latest returns the most recently updated session, used by the CLI as the signed-in session.
func (r *SessionRepository) Latest(ctx context.Context) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY updated_at DESC, created_at DESC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query), "latest")
}

// Update stores the session's display name and credential
func (r *SessionRepository) Update(ctx context.Context, s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	s.SetUpdatedAt(now)

	cred := s.Credential()
	query := `
		UPDATE sessions
		SET display_name = ?, access_token = ?, refresh_token = ?, token_type = ?, scopes = ?, expiry = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		s.DisplayName(), cred.AccessToken, cred.RefreshToken, cred.TokenType,
		strings.Join(cred.Scopes, " "), nullTime(cred.Expiry), now, s.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := affected(result)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, s.ID())
	}
	return nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUser removes every session of a Spotify user and returns how many were removed.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return affected(result)
}

// List retrieves all sessions, most recently updated first
func (r *SessionRepository) List(ctx context.Context) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY updated_at DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) scanOne(row *sql.Row, key string) (*models.Session, error) {
	s, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) scan(row scanner) (*models.Session, error) {
	var (
		id, userID, displayName string
		cred                    models.Credential
		scopes                  string
		expiry                  sql.NullTime
		createdAt, updatedAt    time.Time
	)

	err := row.Scan(&id, &userID, &displayName,
		&cred.AccessToken, &cred.RefreshToken, &cred.TokenType, &scopes, &expiry,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	cred.Scopes = models.ParseScopes(scopes)
	if expiry.Valid {
		cred.Expiry = expiry.Time
	}

	s := models.NewSession(userID, displayName, cred)
	s.SetID(id)
	s.SetCreatedAt(createdAt)
	s.SetUpdatedAt(updatedAt)
	return s, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
