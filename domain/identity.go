package domain

// CanonicalIdentity is the provider-agnostic result of a successful login
// with an external provider. It is derived per attempt and never persisted
// directly; it is the input to account resolution.
type CanonicalIdentity struct {
	ProviderID     string
	ProviderUserID string
	Email          string
	DisplayName    string

	// RawClaims keeps the stringified user-info fields for audit logging.
	RawClaims map[string]string
}
