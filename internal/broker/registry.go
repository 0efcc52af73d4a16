package broker

import (
	"sort"

	"go.pilab.hu/loginbroker/domain"
)

// Registry is the read-only set of configured identity providers.
// It is built once at startup; a registry that fails validation must keep
// the process from serving traffic.
type Registry struct {
	providers map[string]*domain.Provider
}

// NewRegistry validates the given provider configurations and builds a
// registry from them. Any provider missing a required field yields a
// *ConfigError and no registry.
func NewRegistry(providers []domain.Provider) (*Registry, error) {
	m := make(map[string]*domain.Provider, len(providers))
	for i := range providers {
		p := providers[i]
		if err := validateProvider(&p); err != nil {
			return nil, err
		}
		if _, dup := m[p.ID]; dup {
			return nil, &ConfigError{ProviderID: p.ID, Reason: "duplicate provider id"}
		}
		m[p.ID] = &p
	}
	return &Registry{providers: m}, nil
}

// Get returns the provider configuration for id, or ErrUnknownProvider.
func (r *Registry) Get(id string) (*domain.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// IDs returns the configured provider ids in stable order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func validateProvider(p *domain.Provider) error {
	if p.ID == "" {
		return &ConfigError{Reason: "missing provider id"}
	}
	required := []struct {
		name  string
		value string
	}{
		{"authorize_url", p.AuthorizeURL},
		{"token_url", p.TokenURL},
		{"userinfo_url", p.UserInfoURL},
		{"client_id", p.ClientID},
		{"client_secret", p.ClientSecret},
		{"mapping.id_field", p.Mapping.IDField},
	}
	for _, f := range required {
		if f.value == "" {
			return &ConfigError{ProviderID: p.ID, Reason: "missing " + f.name}
		}
	}
	return nil
}
