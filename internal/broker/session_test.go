package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/loginbroker/domain"
	"go.pilab.hu/loginbroker/internal/broker"
	"go.pilab.hu/loginbroker/store"
)

func newIssuer() (*broker.SessionIssuer, *store.MemoryAccountStore, *store.MemorySessionStore) {
	accounts := store.NewMemoryAccountStore()
	sessions := store.NewMemorySessionStore()
	return broker.NewSessionIssuer(accounts, sessions, time.Hour), accounts, sessions
}

func googleIdentity(userID, email string) *domain.CanonicalIdentity {
	return &domain.CanonicalIdentity{
		ProviderID:     "google",
		ProviderUserID: userID,
		Email:          email,
	}
}

func TestSessionIssuer_CreatesAccountOnFirstLogin(t *testing.T) {
	issuer, accounts, sessions := newIssuer()
	ctx := context.Background()

	session, err := issuer.ResolveAndIssue(ctx, googleIdentity("42", "a@b.com"))
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	assert.True(t, session.ExpiresAt.After(session.IssuedAt))

	account, err := accounts.FindByIdentity(ctx, "google", "42")
	require.NoError(t, err)
	assert.Equal(t, session.AccountID, account.ID)
	assert.Equal(t, "a@b.com", account.PrimaryEmail)
	assert.True(t, account.HasIdentity("google", "42"))

	stored, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, stored.AccountID)
}

func TestSessionIssuer_IdempotentOnAccountNotOnSession(t *testing.T) {
	issuer, accounts, _ := newIssuer()
	ctx := context.Background()

	first, err := issuer.ResolveAndIssue(ctx, googleIdentity("42", "a@b.com"))
	require.NoError(t, err)
	second, err := issuer.ResolveAndIssue(ctx, googleIdentity("42", "a@b.com"))
	require.NoError(t, err)

	assert.Equal(t, first.AccountID, second.AccountID)
	assert.NotEqual(t, first.ID, second.ID, "every login issues a fresh session")

	account, err := accounts.FindByIdentity(ctx, "google", "42")
	require.NoError(t, err)
	assert.Len(t, account.Identities, 1)
}

func TestSessionIssuer_ChangedEmailReusesAccount(t *testing.T) {
	issuer, accounts, _ := newIssuer()
	ctx := context.Background()

	first, err := issuer.ResolveAndIssue(ctx, googleIdentity("42", "a@b.com"))
	require.NoError(t, err)

	// Same Google identity, new email: matched by provider_user_id, no
	// duplicate account.
	second, err := issuer.ResolveAndIssue(ctx, googleIdentity("42", "new@b.com"))
	require.NoError(t, err)
	assert.Equal(t, first.AccountID, second.AccountID)

	account, err := accounts.FindByIdentity(ctx, "google", "42")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", account.PrimaryEmail)
}

func TestSessionIssuer_LinksNewProviderByEmail(t *testing.T) {
	issuer, accounts, _ := newIssuer()
	ctx := context.Background()

	first, err := issuer.ResolveAndIssue(ctx, googleIdentity("42", "a@b.com"))
	require.NoError(t, err)

	githubID := &domain.CanonicalIdentity{
		ProviderID:     "github",
		ProviderUserID: "583231",
		Email:          "a@b.com",
	}
	second, err := issuer.ResolveAndIssue(ctx, githubID)
	require.NoError(t, err)
	assert.Equal(t, first.AccountID, second.AccountID)

	account, err := accounts.FindByIdentity(ctx, "github", "583231")
	require.NoError(t, err)
	assert.True(t, account.HasIdentity("google", "42"))
	assert.True(t, account.HasIdentity("github", "583231"))
	assert.Len(t, account.Identities, 2)
}

func TestSessionIssuer_NoEmailAlwaysCreatesNewAccount(t *testing.T) {
	issuer, accounts, _ := newIssuer()
	ctx := context.Background()

	first, err := issuer.ResolveAndIssue(ctx, &domain.CanonicalIdentity{ProviderID: "vk", ProviderUserID: "7"})
	require.NoError(t, err)
	second, err := issuer.ResolveAndIssue(ctx, &domain.CanonicalIdentity{ProviderID: "dropbox", ProviderUserID: "dbid:7"})
	require.NoError(t, err)

	assert.NotEqual(t, first.AccountID, second.AccountID)

	a1, err := accounts.FindByIdentity(ctx, "vk", "7")
	require.NoError(t, err)
	a2, err := accounts.FindByIdentity(ctx, "dropbox", "dbid:7")
	require.NoError(t, err)
	assert.NotEqual(t, a1.ID, a2.ID)
}
