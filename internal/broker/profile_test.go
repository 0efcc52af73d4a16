package broker_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/loginbroker/domain"
	"go.pilab.hu/loginbroker/internal/broker"
	"golang.org/x/oauth2"
)

func userInfoProvider(id, userInfoURL string, mapping domain.ProfileMapping) *domain.Provider {
	return &domain.Provider{
		ID:           id,
		AuthorizeURL: "https://provider.example.com/authorize",
		TokenURL:     "https://provider.example.com/token",
		UserInfoURL:  userInfoURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Mapping:      mapping,
	}
}

func TestNormalizer_GoogleStyleProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"sub": "1234567890",
			"name": "Test User",
			"email": "test.user@example.com",
			"email_verified": true
		}`))
	}))
	defer server.Close()

	provider := userInfoProvider("google", server.URL, domain.ProfileMapping{
		IDField:          "sub",
		EmailField:       "email",
		DisplayNameField: "name",
	})

	n := broker.NewNormalizer(nil, 5*time.Second)
	identity, err := n.Fetch(context.Background(), provider, &oauth2.Token{AccessToken: "tok1"})
	require.NoError(t, err)

	assert.Equal(t, "google", identity.ProviderID)
	assert.Equal(t, "1234567890", identity.ProviderUserID)
	assert.Equal(t, "test.user@example.com", identity.Email)
	assert.Equal(t, "Test User", identity.DisplayName)

	assert.Equal(t, "1234567890", identity.RawClaims["sub"])
	assert.Equal(t, "true", identity.RawClaims["email_verified"])
}

func TestNormalizer_GitHubNumericID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 583231, "login": "octocat", "email": null}`))
	}))
	defer server.Close()

	provider := userInfoProvider("github", server.URL, domain.ProfileMapping{
		IDField:          "id",
		EmailField:       "email",
		DisplayNameField: "login",
	})

	n := broker.NewNormalizer(nil, 5*time.Second)
	identity, err := n.Fetch(context.Background(), provider, &oauth2.Token{AccessToken: "tok1"})
	require.NoError(t, err)

	assert.Equal(t, "583231", identity.ProviderUserID)
	assert.Equal(t, "octocat", identity.DisplayName)
	assert.Empty(t, identity.Email)
}

func TestNormalizer_MissingIdentityFieldIsHardError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email": "a@b.com", "name": "No ID Here"}`))
	}))
	defer server.Close()

	provider := userInfoProvider("google", server.URL, domain.ProfileMapping{IDField: "sub", EmailField: "email"})

	n := broker.NewNormalizer(nil, 5*time.Second)
	_, err := n.Fetch(context.Background(), provider, &oauth2.Token{AccessToken: "tok1"})
	assert.ErrorIs(t, err, broker.ErrMalformedProfile)
}

func TestNormalizer_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad token"}`))
	}))
	defer server.Close()

	provider := userInfoProvider("google", server.URL, domain.ProfileMapping{IDField: "sub"})

	n := broker.NewNormalizer(nil, 5*time.Second)
	_, err := n.Fetch(context.Background(), provider, &oauth2.Token{AccessToken: "tok1"})
	assert.ErrorIs(t, err, broker.ErrProfileFetchFailed)
}

func TestNormalizer_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub": "123", "name": "Trunc`))
	}))
	defer server.Close()

	provider := userInfoProvider("google", server.URL, domain.ProfileMapping{IDField: "sub"})

	n := broker.NewNormalizer(nil, 5*time.Second)
	_, err := n.Fetch(context.Background(), provider, &oauth2.Token{AccessToken: "tok1"})
	assert.ErrorIs(t, err, broker.ErrMalformedProfile)
}

func TestNormalize_MappingOnly(t *testing.T) {
	provider := userInfoProvider("facebook", "https://graph.facebook.com/me", domain.ProfileMapping{
		IDField:          "id",
		EmailField:       "email",
		DisplayNameField: "name",
	})

	identity, err := broker.Normalize(provider, map[string]any{
		"id":    "10001",
		"name":  "Masha",
		"email": "masha@good.cat",
	})
	require.NoError(t, err)
	assert.Equal(t, "10001", identity.ProviderUserID)
	assert.Equal(t, "Masha", identity.DisplayName)
	assert.Equal(t, "masha@good.cat", identity.Email)
}
