package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/tx"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/tx")

// Compile-time check that TxManager implements the tx interfaces.
var (
	_ tx.Manager         = (*TxManager)(nil)
	_ tx.ReadOnlyManager = (*TxManager)(nil)
)

// TxOptions configures transaction behavior.
type TxOptions struct {
	// IsolationLevel: pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted
	IsolationLevel pgx.TxIsoLevel

	// AccessMode: pgx.ReadWrite, pgx.ReadOnly
	AccessMode pgx.TxAccessMode

	// StatementTimeout protects against long-running queries (default 30s)
	StatementTimeout time.Duration

	// UseSavepoint creates savepoint for nested transactions
	// WARNING: Savepoints are expensive, use only when needed
	UseSavepoint bool
}

// DefaultTxOptions returns production-safe defaults.
//
// ReadCommitted is sufficient for movement generation: writers are
// serialized per scope by advisory locks and batch row locks, and
// readers run plain snapshot reads.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
		UseSavepoint:     false,
	}
}

// TxManager manages database transactions with support for:
// - Nested transactions (with optional savepoints)
// - Statement timeout protection
// - Context cancellation handling
// - Distributed tracing integration
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new transaction manager.
func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{pool: pool.Pool}
}

// txKey is the context key for active transaction.
type txKey struct{}

// Tx wraps pgx.Tx with metadata.
type Tx struct {
	pgx.Tx
	nested bool
}

// RunInTransaction executes fn within a transaction.
// If a transaction already exists in ctx, it will be reused (nested transaction).
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransactionWithOptions(ctx, DefaultTxOptions(), fn)
}

// RunInTransactionWithOptions executes fn with custom transaction options.
func (m *TxManager) RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.isolation", string(opts.IsolationLevel)),
		))
	defer span.End()

	if existing := m.GetTx(ctx); existing != nil {
		return m.handleNestedTransaction(ctx, existing, opts, fn)
	}

	return m.startNewTransaction(ctx, opts, fn)
}

// startNewTransaction begins a new database transaction.
func (m *TxManager) startNewTransaction(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	dbTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Set statement timeout for protection against runaway queries
	if opts.StatementTimeout > 0 {
		_, err = dbTx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", opts.StatementTimeout.Milliseconds()))
		if err != nil {
			_ = dbTx.Rollback(ctx)
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	wrappedTx := &Tx{Tx: dbTx, nested: false}
	txCtx := context.WithValue(ctx, txKey{}, wrappedTx)

	if err := m.executeWithRollbackProtection(txCtx, dbTx, fn); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// handleNestedTransaction manages nested transaction (reuses or creates savepoint).
func (m *TxManager) handleNestedTransaction(ctx context.Context, existing *Tx, opts TxOptions, fn func(ctx context.Context) error) error {
	if !opts.UseSavepoint {
		// Reuse existing transaction without savepoint
		return fn(ctx)
	}

	savepointName := fmt.Sprintf("sp_%d", time.Now().UnixNano())
	_, err := existing.Exec(ctx, "SAVEPOINT "+savepointName)
	if err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}

	if err := fn(ctx); err != nil {
		_, rbErr := existing.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepointName)
		if rbErr != nil {
			logger.Error(ctx, "rollback to savepoint failed", "savepoint", savepointName, "error", rbErr)
		}
		return err
	}

	_, err = existing.Exec(ctx, "RELEASE SAVEPOINT "+savepointName)
	if err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}

	return nil
}

// executeWithRollbackProtection runs fn and handles rollback on error.
// Context cancellation is handled by pgx internally - no goroutine needed.
func (m *TxManager) executeWithRollbackProtection(ctx context.Context, dbTx pgx.Tx, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err != nil {
		// Use background context for rollback to ensure it completes
		// even if the original context was cancelled
		if rbErr := dbTx.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}
	return nil
}

// GetTx returns the current transaction from context, or nil if none.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	if t, ok := ctx.Value(txKey{}).(*Tx); ok {
		return t
	}
	return nil
}

// Querier is the common query interface of pool and transaction.
// Repos work through it so the same code runs inside and outside
// transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns appropriate querier for context.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}

// ReadOnly executes fn in a read-only transaction. SOH and traceability
// queries use this: no locks taken, writers never blocked.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := DefaultTxOptions()
	opts.AccessMode = pgx.ReadOnly
	return m.RunInTransactionWithOptions(ctx, opts, fn)
}
