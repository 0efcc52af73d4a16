package domain

import "time"

// PendingLogin records an in-flight login attempt, keyed by its state token.
// It is created on begin_login, consumed exactly once on complete_login, and
// expires via TTL if the user never returns from the provider.
type PendingLogin struct {
	State      string    `json:"state"`
	ProviderID string    `json:"provider_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the pending login is past its deadline at now.
func (p *PendingLogin) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
