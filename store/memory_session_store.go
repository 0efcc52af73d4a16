package store

import (
	"context"
	"sync"
	"time"

	"go.pilab.hu/loginbroker/domain"
)

// MemorySessionStore implements domain.SessionStore in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domain.Session)}
}

// Save implements domain.SessionStore.Save.
func (s *MemorySessionStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

// Get implements domain.SessionStore.Get. An expired session is never
// returned as valid.
func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.Expired(time.Now()) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil, domain.ErrSessionExpired
	}
	return &session, nil
}

// Delete implements domain.SessionStore.Delete.
func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
