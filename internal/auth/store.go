package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/shared"
)

// Store persists sessions. Get returns an error wrapping [shared.ErrSessionNotFound] for unknown IDs.
type Store = models.Repository[*models.Session]

// MemoryStore is an in-process [Store] guarded by a RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*models.Session{}}
}

// Create validates the session, assigns it a new ID when it has none and stores a copy.
func (m *MemoryStore) Create(ctx context.Context, s *models.Session) error {
	if s.ID() == "" {
		s.SetID(shared.GenerateID())
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID()]; exists {
		return fmt.Errorf("session already exists: %s", s.ID())
	}
	m.sessions[s.ID()] = s.Clone()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID()]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, s.ID())
	}
	m.sessions[s.ID()] = s.Clone()
	return nil
}

// Delete removes the session. Deleting an unknown session is not an error.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
