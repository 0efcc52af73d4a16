package broker

import (
	"go.pilab.hu/loginbroker/domain"
	"golang.org/x/oauth2/endpoints"
)

// builtinProviders holds endpoint, scope and mapping defaults for the
// providers the broker knows out of the box. Client credentials always come
// from configuration. Provider quirks (field names, scope syntax) live here
// as data so the rest of the broker stays provider-agnostic.
//
// "stackoverflow" is intentionally absent: its flow was broken in the system
// this broker replaces and was never re-verified.
var builtinProviders = map[string]domain.Provider{
	"google": {
		ID:           "google",
		AuthorizeURL: endpoints.Google.AuthURL,
		TokenURL:     endpoints.Google.TokenURL,
		UserInfoURL:  "https://www.googleapis.com/oauth2/v3/userinfo",
		Scopes:       []string{"openid", "profile", "email"},
		Mapping: domain.ProfileMapping{
			IDField:          "sub",
			EmailField:       "email",
			DisplayNameField: "name",
		},
	},
	"linkedin": {
		ID:           "linkedin",
		AuthorizeURL: endpoints.LinkedIn.AuthURL,
		TokenURL:     endpoints.LinkedIn.TokenURL,
		UserInfoURL:  "https://api.linkedin.com/v2/userinfo",
		Scopes:       []string{"openid", "profile", "email"},
		Mapping: domain.ProfileMapping{
			IDField:          "sub",
			EmailField:       "email",
			DisplayNameField: "name",
		},
	},
	"dropbox": {
		ID: "dropbox",
		// x/oauth2/endpoints has no Dropbox constant.
		AuthorizeURL:   "https://www.dropbox.com/oauth2/authorize",
		TokenURL:       "https://api.dropboxapi.com/oauth2/token",
		UserInfoURL:    "https://api.dropboxapi.com/2/users/get_current_account",
		Scopes:         []string{"account_info.read"},
		ScopeSeparator: " ",
		Mapping: domain.ProfileMapping{
			IDField:    "account_id",
			EmailField: "email",
		},
	},
	"facebook": {
		ID:           "facebook",
		AuthorizeURL: endpoints.Facebook.AuthURL,
		TokenURL:     endpoints.Facebook.TokenURL,
		UserInfoURL:  "https://graph.facebook.com/me?fields=id,name,email",
		Scopes:       []string{"public_profile", "email"},
		Mapping: domain.ProfileMapping{
			IDField:          "id",
			EmailField:       "email",
			DisplayNameField: "name",
		},
	},
	"github": {
		ID:           "github",
		AuthorizeURL: endpoints.GitHub.AuthURL,
		TokenURL:     endpoints.GitHub.TokenURL,
		UserInfoURL:  "https://api.github.com/user",
		Scopes:       []string{"read:user", "user:email"},
		Mapping: domain.ProfileMapping{
			// GitHub returns a numeric id; the normalizer stringifies it.
			IDField:          "id",
			EmailField:       "email",
			DisplayNameField: "login",
		},
	},
	"vk": {
		ID:             "vk",
		AuthorizeURL:   endpoints.Vk.AuthURL,
		TokenURL:       endpoints.Vk.TokenURL,
		UserInfoURL:    "https://api.vk.com/method/users.get",
		Scopes:         []string{"email"},
		ScopeSeparator: ",",
		Mapping: domain.ProfileMapping{
			IDField:          "id",
			EmailField:       "email",
			DisplayNameField: "first_name",
		},
	},
}

// ApplyDefaults fills any empty endpoint, scope or mapping field of p from
// the built-in configuration for its id. Unknown providers are left
// untouched; they must then be fully specified in configuration.
func ApplyDefaults(p *domain.Provider) {
	def, ok := builtinProviders[p.ID]
	if !ok {
		return
	}
	if p.AuthorizeURL == "" {
		p.AuthorizeURL = def.AuthorizeURL
	}
	if p.TokenURL == "" {
		p.TokenURL = def.TokenURL
	}
	if p.UserInfoURL == "" {
		p.UserInfoURL = def.UserInfoURL
	}
	if len(p.Scopes) == 0 {
		p.Scopes = append([]string(nil), def.Scopes...)
	}
	if p.ScopeSeparator == "" {
		p.ScopeSeparator = def.ScopeSeparator
	}
	if p.Mapping.IDField == "" {
		p.Mapping.IDField = def.Mapping.IDField
	}
	if p.Mapping.EmailField == "" {
		p.Mapping.EmailField = def.Mapping.EmailField
	}
	if p.Mapping.DisplayNameField == "" {
		p.Mapping.DisplayNameField = def.Mapping.DisplayNameField
	}
}

// BuiltinProviderIDs lists the provider ids with built-in defaults.
func BuiltinProviderIDs() []string {
	ids := make([]string, 0, len(builtinProviders))
	for id := range builtinProviders {
		ids = append(ids, id)
	}
	return ids
}
