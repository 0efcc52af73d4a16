package broker

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProvider     = errors.New("provider not found or not enabled")
	ErrInvalidState        = errors.New("invalid, expired or already used state token")
	ErrMissingParameter    = errors.New("missing required callback parameter")
	ErrProviderMismatch    = errors.New("state token was issued for a different provider")
	ErrExchangeFailed      = errors.New("failed to exchange authorization code for token")
	ErrProviderUnreachable = errors.New("provider token endpoint unreachable")
	ErrProfileFetchFailed  = errors.New("failed to fetch user info from provider")
	ErrMalformedProfile    = errors.New("provider user info is missing the identity field")
)

// ConfigError marks a provider registry problem found at startup. It is
// fatal: the process must not serve logins with a broken registry.
type ConfigError struct {
	ProviderID string
	Reason     string
}

func (e *ConfigError) Error() string {
	if e.ProviderID == "" {
		return fmt.Sprintf("provider config: %s", e.Reason)
	}
	return fmt.Sprintf("provider config %q: %s", e.ProviderID, e.Reason)
}

// ProviderError carries a provider's non-2xx response from the token
// endpoint for diagnostics. It unwraps to ErrExchangeFailed so callers can
// match on the broad kind.
type ProviderError struct {
	ProviderID string
	Status     int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s returned status %d: %s", e.ProviderID, e.Status, e.Body)
}

func (e *ProviderError) Unwrap() error { return ErrExchangeFailed }

// Kind returns a short stable identifier for the error's taxonomy class,
// used in logs and failure redirects.
func Kind(err error) string {
	var providerErr *ProviderError
	var configErr *ConfigError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &providerErr):
		return "provider_error"
	case errors.As(err, &configErr):
		return "config_error"
	case errors.Is(err, ErrUnknownProvider):
		return "unknown_provider"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrMissingParameter):
		return "missing_parameter"
	case errors.Is(err, ErrProviderMismatch):
		return "provider_mismatch"
	case errors.Is(err, ErrProviderUnreachable):
		return "provider_unreachable"
	case errors.Is(err, ErrExchangeFailed):
		return "exchange_failed"
	case errors.Is(err, ErrProfileFetchFailed):
		return "profile_fetch_failed"
	case errors.Is(err, ErrMalformedProfile):
		return "malformed_profile"
	default:
		return "internal"
	}
}
