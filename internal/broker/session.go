package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.pilab.hu/loginbroker/domain"
	"go.pilab.hu/loginbroker/internal/metrics"
)

// DefaultSessionTTL is the session lifetime when none is configured.
const DefaultSessionTTL = 24 * time.Hour

// SessionIssuer resolves a canonical identity to a local account and issues
// a fresh session for it.
type SessionIssuer struct {
	accounts domain.AccountStore
	sessions domain.SessionStore
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionIssuer creates a SessionIssuer. A non-positive ttl falls back
// to DefaultSessionTTL.
func NewSessionIssuer(accounts domain.AccountStore, sessions domain.SessionStore, ttl time.Duration) *SessionIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionIssuer{accounts: accounts, sessions: sessions, ttl: ttl, now: time.Now}
}

// ResolveAndIssue finds or creates the account for the identity and issues
// a new session. Resolution order: exact identity match, then primary-email
// match (linking the new identity), then account creation. Repeated logins
// by the same provider identity never create duplicate accounts; every call
// does create a distinct session.
func (si *SessionIssuer) ResolveAndIssue(ctx context.Context, identity *domain.CanonicalIdentity) (*domain.Session, error) {
	account, err := si.resolveAccount(ctx, identity)
	if err != nil {
		return nil, err
	}

	now := si.now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(si.ttl),
	}
	if err := si.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return session, nil
}

func (si *SessionIssuer) resolveAccount(ctx context.Context, identity *domain.CanonicalIdentity) (*domain.Account, error) {
	account, err := si.accounts.FindByIdentity(ctx, identity.ProviderID, identity.ProviderUserID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}

	link := domain.IdentityLink{
		ProviderID:     identity.ProviderID,
		ProviderUserID: identity.ProviderUserID,
	}

	if identity.Email != "" {
		account, err = si.accounts.FindByEmail(ctx, identity.Email)
		if err == nil {
			if linkErr := si.accounts.LinkIdentity(ctx, account.ID, link); linkErr != nil {
				return nil, fmt.Errorf("failed to link identity: %w", linkErr)
			}
			return account, nil
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("account lookup by email failed: %w", err)
		}
	}

	now := si.now().UTC()
	account = &domain.Account{
		ID:           uuid.NewString(),
		PrimaryEmail: identity.Email,
		Identities:   []domain.IdentityLink{link},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := si.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	metrics.AccountsCreatedTotal.Inc()
	return account, nil
}
