package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.pilab.hu/loginbroker/domain"
	"golang.org/x/oauth2"
)

// DefaultProfileTimeout is the wall-clock deadline for one user-info fetch.
const DefaultProfileTimeout = 10 * time.Second

// ProfileFetcher fetches and normalizes the provider's user-info response.
type ProfileFetcher interface {
	Fetch(ctx context.Context, provider *domain.Provider, token *oauth2.Token) (*domain.CanonicalIdentity, error)
}

// Normalizer is the single generic ProfileFetcher implementation. Provider
// differences are entirely in the provider's declared field mapping, never
// in code branches here.
type Normalizer struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewNormalizer creates a Normalizer. A nil httpClient uses
// http.DefaultClient; a non-positive timeout falls back to
// DefaultProfileTimeout.
func NewNormalizer(httpClient *http.Client, timeout time.Duration) *Normalizer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultProfileTimeout
	}
	return &Normalizer{httpClient: httpClient, timeout: timeout}
}

// Fetch retrieves the provider's user-info document with the access token
// and applies the provider's field mapping. The identity field is
// non-optional per provider contract: its absence is ErrMalformedProfile,
// never a soft default.
func (n *Normalizer) Fetch(ctx context.Context, provider *domain.Provider, token *oauth2.Token) (*domain.CanonicalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, n.httpClient)
	fetchCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	client := oauth2.NewClient(fetchCtx, oauth2.StaticTokenSource(token))
	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, provider.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrProfileFetchFailed, resp.StatusCode, string(body))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}

	return Normalize(provider, raw)
}

// Normalize applies the provider's declared field mapping to a decoded
// user-info document.
func Normalize(provider *domain.Provider, raw map[string]any) (*domain.CanonicalIdentity, error) {
	mapping := provider.Mapping

	id := stringifyClaim(raw[mapping.IDField])
	if id == "" {
		return nil, fmt.Errorf("%w: field %q", ErrMalformedProfile, mapping.IDField)
	}

	identity := &domain.CanonicalIdentity{
		ProviderID:     provider.ID,
		ProviderUserID: id,
		RawClaims:      make(map[string]string, len(raw)),
	}
	if mapping.EmailField != "" {
		identity.Email = stringifyClaim(raw[mapping.EmailField])
	}
	if mapping.DisplayNameField != "" {
		identity.DisplayName = stringifyClaim(raw[mapping.DisplayNameField])
	}
	for k, v := range raw {
		if s := stringifyClaim(v); s != "" {
			identity.RawClaims[k] = s
		}
	}
	return identity, nil
}

// stringifyClaim renders a scalar JSON value as a string. GitHub's numeric
// user id is the common case that makes this necessary. Nested objects and
// arrays are skipped.
func stringifyClaim(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
