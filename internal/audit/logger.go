package audit

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Event is one audit record for a login attempt. Audit records are a
// security trail, kept separate from operational logging: they carry only
// stable identifiers, never tokens or raw profile claims.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Provider  string    `json:"provider,omitempty"`
	AccountID string    `json:"account_id,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

var auditLogger = zerolog.New(os.Stdout).With().Str("log", "audit").Logger()

// Log records an audit event.
func Log(action, provider, accountID string, success bool, err error) {
	event := Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Provider:  provider,
		AccountID: accountID,
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}

	entry := auditLogger.Info()
	if !success {
		entry = auditLogger.Warn()
	}
	entry.
		Time("timestamp", event.Timestamp).
		Str("action", event.Action).
		Str("provider", event.Provider).
		Str("account_id", event.AccountID).
		Bool("success", event.Success).
		Str("error", event.Error).
		Msg("audit event")
}
