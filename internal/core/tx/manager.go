// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces, not on pgx directly;
// the concrete implementation lives in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
//
// Every movement set produced by one Generate or Reverse call is written
// inside a single RunInTransaction invocation; readers either see the
// whole set or none of it.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back; otherwise
	// it is committed. Nested calls reuse the transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
// SOH and traceability queries run read-only: they take no locks and
// never block writers.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
