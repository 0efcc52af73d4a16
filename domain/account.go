package domain

import "time"

// IdentityLink ties an external provider identity to a local account.
// A given (provider_id, provider_user_id) pair maps to at most one account.
type IdentityLink struct {
	ProviderID     string `bson:"provider_id" json:"provider_id"`
	ProviderUserID string `bson:"provider_user_id" json:"provider_user_id"`
}

// Account is a local user account created on first successful login from a
// new external identity. Further identities are linked when their email
// matches the account's primary email. The broker never deletes accounts.
type Account struct {
	ID           string         `bson:"_id,omitempty" json:"id"`
	PrimaryEmail string         `bson:"primary_email,omitempty" json:"primary_email,omitempty"`
	Identities   []IdentityLink `bson:"identities" json:"identities"`
	CreatedAt    time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at" json:"updated_at"`
}

// HasIdentity reports whether the account is already linked to the given
// provider identity.
func (a *Account) HasIdentity(providerID, providerUserID string) bool {
	for _, link := range a.Identities {
		if link.ProviderID == providerID && link.ProviderUserID == providerUserID {
			return true
		}
	}
	return false
}
