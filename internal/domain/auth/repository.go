package auth

import (
	"context"
)

// CredentialRepository stores module credentials.
type CredentialRepository interface {
	// GetByModule retrieves a module's credential
	GetByModule(ctx context.Context, module string) (ModuleCredential, error)

	// Upsert stores or replaces a module's credential
	Upsert(ctx context.Context, credential ModuleCredential) error
}
