// Package company provides per-company scoping for ledger calls.
// Product and location identifiers are already scoped to a company;
// the company ID still travels explicitly with every call so no
// global "current company" state exists anywhere.
package company

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"stockledger/internal/core/tx"
)

// Context keys for company-scoped values.
type ctxKey int

const (
	poolKey ctxKey = iota
	txManagerKey
	companyKey
)

var (
	ErrNoCompanyInContext = errors.New("company not found in context")
	ErrNoPoolInContext    = errors.New("database pool not found in context")
	ErrNoTxManager        = errors.New("transaction manager not found in context")
)

// --- Pool ---

// WithPool stores the database pool in context.
func WithPool(ctx context.Context, pool *pgxpool.Pool) context.Context {
	return context.WithValue(ctx, poolKey, pool)
}

// GetPool retrieves the database pool from context.
func GetPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, ok := ctx.Value(poolKey).(*pgxpool.Pool)
	if !ok || pool == nil {
		return nil, ErrNoPoolInContext
	}
	return pool, nil
}

// --- TxManager ---

// WithTxManager stores the tx.Manager in context.
func WithTxManager(ctx context.Context, txm tx.Manager) context.Context {
	return context.WithValue(ctx, txManagerKey, txm)
}

// GetTxManager retrieves the tx.Manager from context.
func GetTxManager(ctx context.Context) (tx.Manager, error) {
	txm, ok := ctx.Value(txManagerKey).(tx.Manager)
	if !ok || txm == nil {
		return nil, ErrNoTxManager
	}
	return txm, nil
}

// MustGetTxManager retrieves the tx.Manager or panics.
// Use where a missing manager is a programming error.
func MustGetTxManager(ctx context.Context) tx.Manager {
	txm, err := GetTxManager(ctx)
	if err != nil {
		panic("tx manager not in context: " + err.Error())
	}
	return txm
}

// --- Company ---

// WithCompany stores the company ID in context.
func WithCompany(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyKey, companyID)
}

// GetCompanyID returns the company ID from context.
func GetCompanyID(ctx context.Context) (string, error) {
	c, ok := ctx.Value(companyKey).(string)
	if !ok || c == "" {
		return "", ErrNoCompanyInContext
	}
	return c, nil
}
