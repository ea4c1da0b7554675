package auth

import (
	"time"
)

// Well-known scopes.
const (
	ScopeLedgerWrite = "ledger:write"
	ScopeLedgerRead  = "ledger:read"
	ScopeLedgerAdmin = "ledger:admin"
)

// ModuleCredential stores a calling module's API key hash and grants.
// The plaintext key is shown once at issue time and never stored.
type ModuleCredential struct {
	Module     string     `db:"module"`
	KeyHash    string     `db:"key_hash"`
	Scopes     []string   `db:"scopes"`
	CreatedAt  time.Time  `db:"created_at"`
	DisabledAt *time.Time `db:"disabled_at"`
}

// Enabled reports whether the credential may authenticate.
func (c ModuleCredential) Enabled() bool {
	return c.DisabledAt == nil
}
