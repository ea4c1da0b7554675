// Package auth_repo provides the PostgreSQL credential store.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/auth"
	"stockledger/internal/infrastructure/storage/postgres"
)

const credentialsTable = "sys_module_credentials"

var _ auth.CredentialRepository = (*CredentialRepo)(nil)

// CredentialRepo implements auth.CredentialRepository.
type CredentialRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewCredentialRepo creates the credential repository.
func NewCredentialRepo(txManager *postgres.TxManager) *CredentialRepo {
	return &CredentialRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByModule retrieves a module's credential.
func (r *CredentialRepo) GetByModule(ctx context.Context, module string) (auth.ModuleCredential, error) {
	q := r.builder.Select("module", "key_hash", "scopes", "created_at", "disabled_at").
		From(credentialsTable).
		Where(squirrel.Eq{"module": module}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return auth.ModuleCredential{}, fmt.Errorf("build query: %w", err)
	}

	var credential auth.ModuleCredential
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &credential, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return auth.ModuleCredential{}, apperror.NewNotFound("module credential", module)
		}
		return auth.ModuleCredential{}, fmt.Errorf("get credential: %w", err)
	}
	return credential, nil
}

// Upsert stores or replaces a module's credential.
func (r *CredentialRepo) Upsert(ctx context.Context, credential auth.ModuleCredential) error {
	sql := `
		INSERT INTO sys_module_credentials (module, key_hash, scopes, created_at, disabled_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (module) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			scopes = EXCLUDED.scopes,
			created_at = EXCLUDED.created_at,
			disabled_at = EXCLUDED.disabled_at
	`
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql,
		credential.Module, credential.KeyHash, credential.Scopes,
		credential.CreatedAt, credential.DisabledAt,
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}
