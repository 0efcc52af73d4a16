package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.pilab.hu/loginbroker/domain"
	"golang.org/x/oauth2"
)

const (
	// DefaultExchangeTimeout is the wall-clock deadline for one token
	// endpoint attempt.
	DefaultExchangeTimeout = 10 * time.Second

	// DefaultExchangeBackoff is the pause before the single retry of a
	// network-level failure.
	DefaultExchangeBackoff = 500 * time.Millisecond
)

// CodeExchanger exchanges an authorization code for an access token.
type CodeExchanger interface {
	Exchange(ctx context.Context, provider *domain.Provider, redirectURI, code string) (*oauth2.Token, error)
}

// ExchangeClient performs the authorization-code-to-token exchange against
// a provider's token endpoint.
type ExchangeClient struct {
	httpClient *http.Client
	timeout    time.Duration
	backoff    time.Duration
}

// NewExchangeClient creates an ExchangeClient. A nil httpClient uses
// http.DefaultClient; non-positive timeout and backoff fall back to the
// package defaults.
func NewExchangeClient(httpClient *http.Client, timeout, backoff time.Duration) *ExchangeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	if backoff <= 0 {
		backoff = DefaultExchangeBackoff
	}
	return &ExchangeClient{httpClient: httpClient, timeout: timeout, backoff: backoff}
}

// oauthConfig maps a provider configuration onto an oauth2.Config.
func oauthConfig(p *domain.Provider, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthorizeURL,
			TokenURL: p.TokenURL,
			// A fixed auth style keeps oauth2 from probing the endpoint
			// with a second POST; the code must hit the wire at most
			// once per attempt.
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Exchange posts the authorization code to the provider's token endpoint.
// A non-2xx provider response is always an error, surfaced as a
// *ProviderError with the provider's status and body. Network-level
// failures are retried exactly once after a short backoff: authorization
// codes are single-use, so a stale second retry would be rejected by the
// provider anyway.
func (c *ExchangeClient) Exchange(ctx context.Context, provider *domain.Provider, redirectURI, code string) (*oauth2.Token, error) {
	conf := oauthConfig(provider, redirectURI)

	token, err := c.attempt(ctx, provider, conf, code)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, ErrProviderUnreachable) {
		return nil, err
	}

	select {
	case <-time.After(c.backoff):
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, ctx.Err())
	}
	return c.attempt(ctx, provider, conf, code)
}

func (c *ExchangeClient) attempt(ctx context.Context, provider *domain.Provider, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := conf.Exchange(attemptCtx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &ProviderError{
				ProviderID: provider.ID,
				Status:     retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
			}
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	return token, nil
}
