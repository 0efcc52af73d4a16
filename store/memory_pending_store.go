package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.pilab.hu/loginbroker/domain"
)

// MemoryPendingLoginStore implements domain.PendingLoginStore using
// ttlcache, which evicts expired entries in the background. The mutex makes
// Consume an atomic get-and-delete: for concurrent consumes of the same
// state token exactly one caller wins.
type MemoryPendingLoginStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, domain.PendingLogin]
}

// NewMemoryPendingLoginStore creates an in-memory pending login store with
// automatic eviction of expired entries.
func NewMemoryPendingLoginStore() *MemoryPendingLoginStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, domain.PendingLogin](),
	)
	go cache.Start()
	return &MemoryPendingLoginStore{cache: cache}
}

// Put implements domain.PendingLoginStore.Put. A login that already expired
// is refused: a non-positive duration would hit ttlcache's NoTTL/DefaultTTL
// sentinels and keep the entry alive forever.
func (s *MemoryPendingLoginStore) Put(_ context.Context, login domain.PendingLogin) error {
	ttl := time.Until(login.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("pending login for state %q is already expired", login.State)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(login.State, login, ttl)
	return nil
}

// Consume implements domain.PendingLoginStore.Consume. Expired entries are
// not returned even when the background eviction has not caught up yet.
func (s *MemoryPendingLoginStore) Consume(_ context.Context, state string) (*domain.PendingLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.cache.Get(state)
	if item == nil {
		return nil, domain.ErrPendingLoginNotFound
	}
	login := item.Value()
	s.cache.Delete(state)
	return &login, nil
}

// Len returns the number of live pending logins.
func (s *MemoryPendingLoginStore) Len() int {
	return s.cache.Len()
}

// Close stops the eviction goroutine.
func (s *MemoryPendingLoginStore) Close() error {
	s.cache.Stop()
	return nil
}
