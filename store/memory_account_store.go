package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.pilab.hu/loginbroker/domain"
)

type identityKey struct {
	providerID     string
	providerUserID string
}

// MemoryAccountStore implements domain.AccountStore in process memory.
// Suitable for tests and single-instance deployments.
type MemoryAccountStore struct {
	mu         sync.RWMutex
	accounts   map[string]*domain.Account
	byIdentity map[identityKey]string
	byEmail    map[string]string
}

// NewMemoryAccountStore creates an empty in-memory account store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts:   make(map[string]*domain.Account),
		byIdentity: make(map[identityKey]string),
		byEmail:    make(map[string]string),
	}
}

// FindByIdentity implements domain.AccountStore.FindByIdentity.
func (s *MemoryAccountStore) FindByIdentity(_ context.Context, providerID, providerUserID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdentity[identityKey{providerID, providerUserID}]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(s.accounts[id]), nil
}

// FindByEmail implements domain.AccountStore.FindByEmail.
func (s *MemoryAccountStore) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if email == "" {
		return nil, domain.ErrAccountNotFound
	}
	id, ok := s.byEmail[email]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(s.accounts[id]), nil
}

// Create implements domain.AccountStore.Create. Each identity link may map
// to at most one account.
func (s *MemoryAccountStore) Create(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return fmt.Errorf("account %s already exists", account.ID)
	}
	for _, link := range account.Identities {
		key := identityKey{link.ProviderID, link.ProviderUserID}
		if _, taken := s.byIdentity[key]; taken {
			return fmt.Errorf("identity %s/%s already linked", link.ProviderID, link.ProviderUserID)
		}
	}
	stored := cloneAccount(account)
	s.accounts[stored.ID] = stored
	for _, link := range stored.Identities {
		s.byIdentity[identityKey{link.ProviderID, link.ProviderUserID}] = stored.ID
	}
	if stored.PrimaryEmail != "" {
		s.byEmail[stored.PrimaryEmail] = stored.ID
	}
	return nil
}

// LinkIdentity implements domain.AccountStore.LinkIdentity.
func (s *MemoryAccountStore) LinkIdentity(_ context.Context, accountID string, link domain.IdentityLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	key := identityKey{link.ProviderID, link.ProviderUserID}
	if owner, taken := s.byIdentity[key]; taken {
		if owner == accountID {
			return nil
		}
		return fmt.Errorf("identity %s/%s already linked to another account", link.ProviderID, link.ProviderUserID)
	}
	account.Identities = append(account.Identities, link)
	account.UpdatedAt = time.Now().UTC()
	s.byIdentity[key] = accountID
	return nil
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	out := *a
	out.Identities = append([]domain.IdentityLink(nil), a.Identities...)
	return &out
}
