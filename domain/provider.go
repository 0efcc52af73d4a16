package domain

// ProfileMapping declares how a provider's user-info response maps onto a
// CanonicalIdentity. Values are top-level JSON field names in the provider's
// user-info document. IDField is mandatory for every provider; the other
// fields may be empty when the provider does not expose them.
type ProfileMapping struct {
	IDField          string `mapstructure:"id_field" json:"id_field"`
	EmailField       string `mapstructure:"email_field" json:"email_field,omitempty"`
	DisplayNameField string `mapstructure:"display_name_field" json:"display_name_field,omitempty"`
}

// Provider holds the static configuration for one external identity provider.
// It is loaded once at process start and is read-only afterwards; nothing in
// the broker mutates it.
type Provider struct {
	ID           string   `mapstructure:"id" json:"id"`
	AuthorizeURL string   `mapstructure:"authorize_url" json:"authorize_url"`
	TokenURL     string   `mapstructure:"token_url" json:"token_url"`
	UserInfoURL  string   `mapstructure:"userinfo_url" json:"userinfo_url"`
	ClientID     string   `mapstructure:"client_id" json:"client_id"`
	ClientSecret string   `mapstructure:"client_secret" json:"-"`
	Scopes       []string `mapstructure:"scopes" json:"scopes,omitempty"`

	// ScopeSeparator joins Scopes in the authorization URL. Most providers
	// follow RFC 6749 and use a space; a few (vk, dropbox) expect commas.
	ScopeSeparator string `mapstructure:"scope_separator" json:"scope_separator,omitempty"`

	Mapping ProfileMapping `mapstructure:"mapping" json:"mapping"`
}

// ScopeString returns the provider's scopes joined with its separator,
// defaulting to a space when none is configured.
func (p *Provider) ScopeString() string {
	sep := p.ScopeSeparator
	if sep == "" {
		sep = " "
	}
	out := ""
	for i, s := range p.Scopes {
		if i > 0 {
			out += sep
		}
		out += s
	}
	return out
}
