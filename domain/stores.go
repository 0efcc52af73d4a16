package domain

import (
	"context"
	"errors"
)

var (
	ErrPendingLoginNotFound = errors.New("pending login not found or expired")
	ErrAccountNotFound      = errors.New("account not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
)

// PendingLoginStore holds in-flight login attempts keyed by state token.
// Consume must be linearizable per token: of any number of concurrent
// Consume calls for the same state, exactly one succeeds and the rest fail
// with ErrPendingLoginNotFound. Expired entries behave as absent.
type PendingLoginStore interface {
	Put(ctx context.Context, login PendingLogin) error

	// Consume atomically retrieves and removes the pending login for the
	// given state token. Unknown, expired, and already-consumed tokens all
	// return ErrPendingLoginNotFound.
	Consume(ctx context.Context, state string) (*PendingLogin, error)
}

// AccountStore persists local accounts and their linked external identities.
type AccountStore interface {
	// FindByIdentity returns the account linked to the given provider
	// identity, or ErrAccountNotFound.
	FindByIdentity(ctx context.Context, providerID, providerUserID string) (*Account, error)

	// FindByEmail returns the account whose primary email matches, or
	// ErrAccountNotFound.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	Create(ctx context.Context, account *Account) error

	// LinkIdentity adds a new identity link to an existing account.
	LinkIdentity(ctx context.Context, accountID string, link IdentityLink) error
}

// SessionStore persists issued sessions. Get never returns an expired
// session as valid; implementations return ErrSessionExpired instead.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
