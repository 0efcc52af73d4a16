package broker

import (
	"net/url"
)

// AuthorizationURL builds the provider authorization URL for a login
// attempt. It is a pure function: given the same provider, redirect URI and
// state it always produces the same URL. The scope parameter is joined with
// the provider's separator since not every provider follows the space
// convention of RFC 6749.
func AuthorizationURL(providerAuthorizeURL, clientID, redirectURI, scope, state string) (string, error) {
	u, err := url.Parse(providerAuthorizeURL)
	if err != nil {
		return "", &ConfigError{Reason: "invalid authorize_url: " + err.Error()}
	}
	q := u.Query()
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	if scope != "" {
		q.Set("scope", scope)
	}
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
