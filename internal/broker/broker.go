package broker

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.pilab.hu/loginbroker/domain"
	"go.pilab.hu/loginbroker/internal/audit"
	"go.pilab.hu/loginbroker/internal/metrics"
	"go.pilab.hu/loginbroker/log"
)

var tracer = otel.Tracer("go.pilab.hu/loginbroker/internal/broker")

// LoginBroker coordinates the authorization-code login flow. It serves many
// concurrent, independent attempts: the only shared mutable state between
// them is the pending-login store.
type LoginBroker struct {
	registry  *Registry
	states    *StateManager
	exchanger CodeExchanger
	profiles  ProfileFetcher
	issuer    *SessionIssuer

	// redirectBase is the externally visible callback base URL,
	// e.g. "https://login.example.com/login". The provider id is appended.
	redirectBase string

	logger log.Logger
}

// NewLoginBroker wires the broker from its parts.
func NewLoginBroker(
	registry *Registry,
	states *StateManager,
	exchanger CodeExchanger,
	profiles ProfileFetcher,
	issuer *SessionIssuer,
	redirectBase string,
	logger log.Logger,
) *LoginBroker {
	return &LoginBroker{
		registry:     registry,
		states:       states,
		exchanger:    exchanger,
		profiles:     profiles,
		issuer:       issuer,
		redirectBase: strings.TrimRight(redirectBase, "/"),
		logger:       logger,
	}
}

// RedirectURIForProvider returns the pre-registered callback URL for a
// provider, e.g. https://login.example.com/login/google/callback.
func (b *LoginBroker) RedirectURIForProvider(providerID string) string {
	return fmt.Sprintf("%s/%s/callback", b.redirectBase, url.PathEscape(providerID))
}

// BeginLogin starts a login attempt with the given provider: it issues a
// pending login and returns the authorization URL to redirect the user to.
func (b *LoginBroker) BeginLogin(ctx context.Context, providerID string) (string, error) {
	ctx, span := tracer.Start(ctx, "LoginBroker.BeginLogin")
	defer span.End()
	span.SetAttributes(attribute.String("login.provider", providerID))

	provider, err := b.registry.Get(providerID)
	if err != nil {
		b.logFailure(ctx, providerID, "begin_login", err)
		return "", err
	}

	login, err := b.states.Issue(ctx, providerID)
	if err != nil {
		b.logFailure(ctx, providerID, "begin_login", err)
		return "", err
	}

	authURL, err := AuthorizationURL(
		provider.AuthorizeURL,
		provider.ClientID,
		b.RedirectURIForProvider(providerID),
		provider.ScopeString(),
		login.State,
	)
	if err != nil {
		b.logFailure(ctx, providerID, "begin_login", err)
		return "", err
	}

	metrics.LoginStartedTotal.WithLabelValues(providerID).Inc()
	b.logger.Debug(ctx, "login attempt started", map[string]interface{}{
		"provider": providerID,
	})
	return authURL, nil
}

// CompleteLogin finishes a login attempt from the provider's callback query
// parameters. Any failure terminates only this attempt; no partial account
// or session is ever left behind, since resolution runs last, after a fully
// validated identity exists.
func (b *LoginBroker) CompleteLogin(ctx context.Context, providerID string, params url.Values) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "LoginBroker.CompleteLogin")
	defer span.End()
	span.SetAttributes(attribute.String("login.provider", providerID))

	state := params.Get("state")
	code := params.Get("code")
	if state == "" || code == "" {
		b.logFailure(ctx, providerID, "complete_login", ErrMissingParameter)
		return nil, ErrMissingParameter
	}

	login, err := b.states.Consume(ctx, state)
	if err != nil {
		b.logFailure(ctx, providerID, "complete_login", err)
		return nil, err
	}
	if login.ProviderID != providerID {
		b.logFailure(ctx, providerID, "complete_login", ErrProviderMismatch)
		return nil, ErrProviderMismatch
	}

	provider, err := b.registry.Get(providerID)
	if err != nil {
		b.logFailure(ctx, providerID, "complete_login", err)
		return nil, err
	}

	token, err := b.exchanger.Exchange(ctx, provider, b.RedirectURIForProvider(providerID), code)
	if err != nil {
		b.logFailure(ctx, providerID, "complete_login", err)
		return nil, err
	}

	identity, err := b.profiles.Fetch(ctx, provider, token)
	if err != nil {
		b.logFailure(ctx, providerID, "complete_login", err)
		return nil, err
	}

	session, err := b.issuer.ResolveAndIssue(ctx, identity)
	if err != nil {
		b.logFailure(ctx, providerID, "complete_login", err)
		return nil, err
	}

	metrics.LoginCompletedTotal.WithLabelValues(providerID).Inc()
	audit.Log("complete_login", providerID, session.AccountID, true, nil)
	b.logger.Info(ctx, "login completed", map[string]interface{}{
		"provider":   providerID,
		"account_id": session.AccountID,
	})
	return session, nil
}

// logFailure records a failed attempt with its taxonomy kind. Raw
// credentials and tokens are never logged.
func (b *LoginBroker) logFailure(ctx context.Context, providerID, op string, err error) {
	metrics.LoginFailedTotal.WithLabelValues(providerID, Kind(err)).Inc()
	if op == "complete_login" {
		audit.Log(op, providerID, "", false, err)
	}
	b.logger.Warn(ctx, "login attempt failed", map[string]interface{}{
		"provider": providerID,
		"op":       op,
		"kind":     Kind(err),
	})
}
