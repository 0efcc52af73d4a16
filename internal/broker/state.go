package broker

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.pilab.hu/loginbroker/domain"
)

// DefaultStateTTL is how long a pending login stays valid when no TTL is
// configured.
const DefaultStateTTL = 10 * time.Minute

// StateManager issues and consumes the anti-forgery state tokens that bind
// a provider callback to the begin_login that started it.
type StateManager struct {
	store domain.PendingLoginStore
	ttl   time.Duration
	now   func() time.Time
}

// NewStateManager creates a StateManager on top of the given store.
// A non-positive ttl falls back to DefaultStateTTL.
func NewStateManager(store domain.PendingLoginStore, ttl time.Duration) *StateManager {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateManager{store: store, ttl: ttl, now: time.Now}
}

// Issue generates a fresh state token bound to providerID and records the
// pending login with expiry now+TTL.
func (m *StateManager) Issue(ctx context.Context, providerID string) (*domain.PendingLogin, error) {
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}
	now := m.now().UTC()
	login := domain.PendingLogin{
		State:      state,
		ProviderID: providerID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, login); err != nil {
		return nil, fmt.Errorf("failed to store pending login: %w", err)
	}
	return &login, nil
}

// Consume removes and returns the pending login for state. It succeeds at
// most once per token: replays, unknown tokens and expired tokens all fail
// with ErrInvalidState. The expiry check runs against the current clock, so
// an expired entry the store has not evicted yet is still rejected.
func (m *StateManager) Consume(ctx context.Context, state string) (*domain.PendingLogin, error) {
	if state == "" {
		return nil, ErrInvalidState
	}
	login, err := m.store.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, domain.ErrPendingLoginNotFound) {
			return nil, ErrInvalidState
		}
		return nil, err
	}
	if login.Expired(m.now()) {
		return nil, ErrInvalidState
	}
	return login, nil
}

// generateState returns a 256-bit random token, URL-safe encoded.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
