package domain

import "time"

// Session represents an authenticated session issued after a completed
// login. The surrounding application owns cookie format and logout; the
// broker's contract is only that an expired session is never valid.
type Session struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	AccountID string    `bson:"account_id" json:"account_id"`
	IssuedAt  time.Time `bson:"issued_at" json:"issued_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}

// Expired reports whether the session is past its deadline at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
