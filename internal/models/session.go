package models

import (
	"fmt"
	"slices"
	"time"
)

// Session represents one authenticated user's access.
//
// Sessions are created on sign-in, destroyed on sign-out and never shared across users.
type Session struct {
	id          string
	userID      string
	displayName string
	credential  Credential
	createdAt   time.Time
	updatedAt   time.Time
}

// NewSession creates a [Session] for the given Spotify user bound to cred.
//
// The ID is assigned by the repository on creation.
func NewSession(userID, displayName string, cred Credential) *Session {
	now := time.Now().UTC()
	return &Session{
		userID:      userID,
		displayName: displayName,
		credential:  cred,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (s *Session) ID() string             { return s.id }
func (s *Session) UserID() string         { return s.userID }
func (s *Session) DisplayName() string    { return s.displayName }
func (s *Session) Credential() Credential { return s.credential }
func (s *Session) CreatedAt() time.Time   { return s.createdAt }
func (s *Session) UpdatedAt() time.Time   { return s.updatedAt }

func (s *Session) SetID(id string)               { s.id = id }
func (s *Session) SetCredential(cred Credential) { s.credential = cred }
func (s *Session) SetCreatedAt(t time.Time)      { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time)      { s.updatedAt = t }
func (s *Session) SetDisplayName(name string)    { s.displayName = name }

// Validate checks that the session is bound to a user and carries a token.
func (s *Session) Validate() error {
	if s.userID == "" {
		return fmt.Errorf("session user id is required")
	}
	if s.credential.AccessToken == "" {
		return fmt.Errorf("session access token is required")
	}
	return nil
}

// Clone returns a deep copy so stores can hand out sessions without sharing scope slices.
func (s *Session) Clone() *Session {
	c := *s
	c.credential.Scopes = slices.Clone(s.credential.Scopes)
	return &c
}
