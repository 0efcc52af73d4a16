package broker_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/loginbroker/domain"
	"go.pilab.hu/loginbroker/internal/broker"
	"go.pilab.hu/loginbroker/log"
	"go.pilab.hu/loginbroker/store"
	"golang.org/x/oauth2"
)

type stubExchanger struct {
	token *oauth2.Token
	err   error
	calls int
}

func (s *stubExchanger) Exchange(_ context.Context, _ *domain.Provider, _, _ string) (*oauth2.Token, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

type stubFetcher struct {
	identity *domain.CanonicalIdentity
	err      error
}

func (s *stubFetcher) Fetch(_ context.Context, _ *domain.Provider, _ *oauth2.Token) (*domain.CanonicalIdentity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

type brokerFixture struct {
	broker   *broker.LoginBroker
	states   *broker.StateManager
	accounts *store.MemoryAccountStore
	sessions *store.MemorySessionStore
}

func newBrokerFixture(t *testing.T, exchanger broker.CodeExchanger, fetcher broker.ProfileFetcher) *brokerFixture {
	t.Helper()
	registry, err := broker.NewRegistry([]domain.Provider{testProvider("google"), testProvider("linkedin")})
	require.NoError(t, err)

	states := broker.NewStateManager(store.NewMemoryPendingLoginStore(), 10*time.Minute)
	accounts := store.NewMemoryAccountStore()
	sessions := store.NewMemorySessionStore()

	b := broker.NewLoginBroker(
		registry,
		states,
		exchanger,
		fetcher,
		broker.NewSessionIssuer(accounts, sessions, time.Hour),
		"https://broker.example.com/login",
		log.NewNop(),
	)
	return &brokerFixture{broker: b, states: states, accounts: accounts, sessions: sessions}
}

func callbackParams(state, code string) url.Values {
	params := url.Values{}
	if state != "" {
		params.Set("state", state)
	}
	if code != "" {
		params.Set("code", code)
	}
	return params
}

func TestLoginBroker_BeginLogin(t *testing.T) {
	f := newBrokerFixture(t, &stubExchanger{}, &stubFetcher{})
	ctx := context.Background()

	authURL, err := f.broker.BeginLogin(ctx, "google")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "https://broker.example.com/login/google/callback", q.Get("redirect_uri"))
	assert.GreaterOrEqual(t, len(q.Get("state")), 32)

	// The state token is bound to the provider that started the attempt.
	login, err := f.states.Consume(ctx, q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "google", login.ProviderID)
}

func TestLoginBroker_BeginLoginUnknownProvider(t *testing.T) {
	f := newBrokerFixture(t, &stubExchanger{}, &stubFetcher{})
	_, err := f.broker.BeginLogin(context.Background(), "stackoverflow")
	assert.ErrorIs(t, err, broker.ErrUnknownProvider)
}

func TestLoginBroker_CompleteLogin(t *testing.T) {
	exchanger := &stubExchanger{token: &oauth2.Token{AccessToken: "tok1"}}
	fetcher := &stubFetcher{identity: &domain.CanonicalIdentity{
		ProviderID:     "google",
		ProviderUserID: "42",
		Email:          "a@b.com",
	}}
	f := newBrokerFixture(t, exchanger, fetcher)
	ctx := context.Background()

	login, err := f.states.Issue(ctx, "google")
	require.NoError(t, err)

	session, err := f.broker.CompleteLogin(ctx, "google", callbackParams(login.State, "abc123"))
	require.NoError(t, err)
	require.NotNil(t, session)

	account, err := f.accounts.FindByIdentity(ctx, "google", "42")
	require.NoError(t, err)
	assert.Equal(t, account.ID, session.AccountID)
	assert.True(t, account.HasIdentity("google", "42"))

	stored, err := f.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.AccountID, stored.AccountID)
}

func TestLoginBroker_CompleteLoginMissingParameters(t *testing.T) {
	f := newBrokerFixture(t, &stubExchanger{}, &stubFetcher{})
	ctx := context.Background()

	_, err := f.broker.CompleteLogin(ctx, "google", callbackParams("", "abc123"))
	assert.ErrorIs(t, err, broker.ErrMissingParameter)

	_, err = f.broker.CompleteLogin(ctx, "google", callbackParams("some-state", ""))
	assert.ErrorIs(t, err, broker.ErrMissingParameter)
}

func TestLoginBroker_CompleteLoginReplayedState(t *testing.T) {
	exchanger := &stubExchanger{token: &oauth2.Token{AccessToken: "tok1"}}
	fetcher := &stubFetcher{identity: &domain.CanonicalIdentity{ProviderID: "google", ProviderUserID: "42"}}
	f := newBrokerFixture(t, exchanger, fetcher)
	ctx := context.Background()

	login, err := f.states.Issue(ctx, "google")
	require.NoError(t, err)

	_, err = f.broker.CompleteLogin(ctx, "google", callbackParams(login.State, "abc123"))
	require.NoError(t, err)

	_, err = f.broker.CompleteLogin(ctx, "google", callbackParams(login.State, "abc123"))
	assert.ErrorIs(t, err, broker.ErrInvalidState)
}

func TestLoginBroker_CompleteLoginProviderMismatch(t *testing.T) {
	f := newBrokerFixture(t, &stubExchanger{}, &stubFetcher{})
	ctx := context.Background()

	login, err := f.states.Issue(ctx, "google")
	require.NoError(t, err)

	_, err = f.broker.CompleteLogin(ctx, "linkedin", callbackParams(login.State, "x"))
	assert.ErrorIs(t, err, broker.ErrProviderMismatch)

	// The mismatch consumed the token; it cannot be replayed on the right
	// provider either.
	_, err = f.broker.CompleteLogin(ctx, "google", callbackParams(login.State, "x"))
	assert.ErrorIs(t, err, broker.ErrInvalidState)
}

func TestLoginBroker_ExchangeFailureIssuesNothing(t *testing.T) {
	exchanger := &stubExchanger{err: broker.ErrProviderUnreachable}
	f := newBrokerFixture(t, exchanger, &stubFetcher{})
	ctx := context.Background()

	login, err := f.states.Issue(ctx, "google")
	require.NoError(t, err)

	_, err = f.broker.CompleteLogin(ctx, "google", callbackParams(login.State, "abc123"))
	assert.ErrorIs(t, err, broker.ErrProviderUnreachable)

	// No partial account was left behind.
	_, err = f.accounts.FindByIdentity(ctx, "google", "42")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestLoginBroker_MalformedProfileIssuesNothing(t *testing.T) {
	exchanger := &stubExchanger{token: &oauth2.Token{AccessToken: "tok1"}}
	fetcher := &stubFetcher{err: broker.ErrMalformedProfile}
	f := newBrokerFixture(t, exchanger, fetcher)
	ctx := context.Background()

	login, err := f.states.Issue(ctx, "google")
	require.NoError(t, err)

	_, err = f.broker.CompleteLogin(ctx, "google", callbackParams(login.State, "abc123"))
	assert.ErrorIs(t, err, broker.ErrMalformedProfile)
	assert.Equal(t, 1, exchanger.calls)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "invalid_state", broker.Kind(broker.ErrInvalidState))
	assert.Equal(t, "provider_mismatch", broker.Kind(broker.ErrProviderMismatch))
	assert.Equal(t, "provider_error", broker.Kind(&broker.ProviderError{Status: 400}))
	assert.Equal(t, "provider_unreachable", broker.Kind(broker.ErrProviderUnreachable))
	assert.Equal(t, "internal", broker.Kind(assert.AnError))
	assert.Equal(t, "", broker.Kind(nil))
}
