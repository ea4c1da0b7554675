// Package ledger_repo provides PostgreSQL implementations for the
// movement ledger repositories.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const movementsTable = "ledger_movements"

var movementColumns = []string{
	"id", "transaction_detail_id", "company_id",
	"direction", "quantity",
	"product_id", "location_id",
	"batch_number", "serial_number",
	"occurred_at", "is_reversed", "reversal_of_movement_id", "created_at",
}

// Compile-time check.
var _ ledger.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implements ledger.MovementRepository. The table is
// insert-only: no UPDATE touches quantity or direction, and there is no
// DELETE path at all. The single mutation is setting is_reversed.
type MovementRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewMovementRepo creates the movement repository.
func NewMovementRepo(txManager *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateMovements batch inserts movements. Uses COPY inside a
// transaction, which is where generation always calls from.
func (r *MovementRepo) CreateMovements(ctx context.Context, movements []entity.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.ID, m.TransactionDetailID, m.CompanyID,
				m.Direction, m.Quantity.Int64Scaled(),
				m.ProductID, m.LocationID,
				m.BatchNumber, m.SerialNumber,
				m.OccurredAt, m.IsReversed, m.ReversalOfMovementID, m.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	// Fallback for callers outside a transaction.
	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(
			m.ID, m.TransactionDetailID, m.CompanyID,
			m.Direction, m.Quantity.Int64Scaled(),
			m.ProductID, m.LocationID,
			m.BatchNumber, m.SerialNumber,
			m.OccurredAt, m.IsReversed, m.ReversalOfMovementID, m.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

// GetByDetailID retrieves every movement for a detail, creation order.
func (r *MovementRepo) GetByDetailID(ctx context.Context, detailID id.ID) ([]entity.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"transaction_detail_id": detailID}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []movementRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return toMovements(rows), nil
}

// MarkReversed sets the is_reversed flag on the given movements.
func (r *MovementRepo) MarkReversed(ctx context.Context, movementIDs []id.ID) error {
	if len(movementIDs) == 0 {
		return nil
	}

	q := r.builder.Update(movementsTable).
		Set("is_reversed", true).
		Where(squirrel.Eq{"id": movementIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("mark reversed: %w", err)
	}
	return nil
}

// SumInScope replays the ledger for a scope: signed sum of all movements
// with occurred_at <= asOf. Compensating entries are ordinary rows here,
// which is exactly what makes reversal net to zero.
func (r *MovementRepo) SumInScope(ctx context.Context, scope ledger.Scope, asOf time.Time) (types.Quantity, error) {
	q := r.builder.Select(
		"COALESCE(SUM(CASE WHEN direction = 'IN' THEN quantity ELSE -quantity END), 0)",
	).From(movementsTable).
		Where(squirrel.Eq{
			"company_id": scope.CompanyID,
			"product_id": scope.ProductID,
		}).
		Where(squirrel.LtOrEq{"occurred_at": asOf})

	if scope.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *scope.LocationID})
	}
	if scope.BatchNumber != nil {
		q = q.Where(squirrel.Eq{"batch_number": *scope.BatchNumber})
	}
	if scope.SerialNumber != nil {
		q = q.Where(squirrel.Eq{"serial_number": *scope.SerialNumber})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var sumScaled int64
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&sumScaled)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("sum movements: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(sumScaled), nil
}

// TraceLineage returns all movements sharing a batch or serial
// identifier, chronologically.
func (r *MovementRepo) TraceLineage(ctx context.Context, companyID, batchOrSerial string) ([]entity.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.Or{
			squirrel.Eq{"batch_number": batchOrSerial},
			squirrel.Eq{"serial_number": batchOrSerial},
		}).
		OrderBy("occurred_at", "created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []movementRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select lineage: %w", err)
	}
	return toMovements(rows), nil
}

// History returns filtered movements for a product, newest first.
func (r *MovementRepo) History(ctx context.Context, companyID string, productID id.ID, filter ledger.MovementFilter) ([]entity.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{
			"company_id": companyID,
			"product_id": productID,
		})

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.Direction != nil {
		q = q.Where(squirrel.Eq{"direction": *filter.Direction})
	}
	if filter.BatchNumber != nil {
		q = q.Where(squirrel.Eq{"batch_number": *filter.BatchNumber})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"occurred_at": *filter.ToDate})
	}

	q = q.OrderBy("occurred_at DESC", "created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []movementRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return toMovements(rows), nil
}

// GetTurnover sums receipts and issues for a period in a single pass:
// rows before the period contribute to the opening balance, rows inside
// it to inbound/outbound.
func (r *MovementRepo) GetTurnover(ctx context.Context, filter ledger.TurnoverFilter) (ledger.Turnover, error) {
	q := r.builder.Select().
		Column(squirrel.Expr(
			"COALESCE(SUM(CASE WHEN occurred_at < ? THEN (CASE WHEN direction = 'IN' THEN quantity ELSE -quantity END) ELSE 0 END), 0) AS opening",
			filter.FromDate)).
		Column(squirrel.Expr(
			"COALESCE(SUM(CASE WHEN occurred_at >= ? AND direction = 'IN' THEN quantity ELSE 0 END), 0) AS inbound",
			filter.FromDate)).
		Column(squirrel.Expr(
			"COALESCE(SUM(CASE WHEN occurred_at >= ? AND direction = 'OUT' THEN quantity ELSE 0 END), 0) AS outbound",
			filter.FromDate)).
		From(movementsTable).
		Where(squirrel.Eq{"company_id": filter.CompanyID}).
		Where(squirrel.LtOrEq{"occurred_at": filter.ToDate})

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return ledger.Turnover{}, fmt.Errorf("build query: %w", err)
	}

	var opening, inbound, outbound int64
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&opening, &inbound, &outbound)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return ledger.Turnover{}, fmt.Errorf("sum turnover: %w", err)
	}

	t := ledger.Turnover{
		OpeningBalance: types.NewQuantityFromInt64Scaled(opening),
		Inbound:        types.NewQuantityFromInt64Scaled(inbound),
		Outbound:       types.NewQuantityFromInt64Scaled(outbound),
	}
	if filter.ProductID != nil {
		t.ProductID = *filter.ProductID
	}
	if filter.LocationID != nil {
		t.LocationID = *filter.LocationID
	}
	t.ClosingBalance = t.OpeningBalance + t.Inbound - t.Outbound
	return t, nil
}

// LockScope takes a transaction-scoped advisory lock on the
// (company, product, location) writer scope. Released automatically at
// commit or rollback. Readers never call this.
func (r *MovementRepo) LockScope(ctx context.Context, companyID string, productID, locationID id.ID) error {
	if r.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("LockScope requires transaction context")
	}

	key := companyID + ":" + productID.String() + ":" + locationID.String()
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtext($1))", key)
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// movementRow is the scan target; quantity is stored scaled.
type movementRow struct {
	ID                   id.ID            `db:"id"`
	TransactionDetailID  id.ID            `db:"transaction_detail_id"`
	CompanyID            string           `db:"company_id"`
	Direction            entity.Direction `db:"direction"`
	Quantity             int64            `db:"quantity"`
	ProductID            id.ID            `db:"product_id"`
	LocationID           id.ID            `db:"location_id"`
	BatchNumber          *string          `db:"batch_number"`
	SerialNumber         *string          `db:"serial_number"`
	OccurredAt           time.Time        `db:"occurred_at"`
	IsReversed           bool             `db:"is_reversed"`
	ReversalOfMovementID *id.ID           `db:"reversal_of_movement_id"`
	CreatedAt            time.Time        `db:"created_at"`
}

func toMovements(rows []movementRow) []entity.Movement {
	movements := make([]entity.Movement, 0, len(rows))
	for _, row := range rows {
		movements = append(movements, entity.Movement{
			ID:                   row.ID,
			TransactionDetailID:  row.TransactionDetailID,
			CompanyID:            row.CompanyID,
			Direction:            row.Direction,
			Quantity:             types.NewQuantityFromInt64Scaled(row.Quantity),
			ProductID:            row.ProductID,
			LocationID:           row.LocationID,
			BatchNumber:          row.BatchNumber,
			SerialNumber:         row.SerialNumber,
			OccurredAt:           row.OccurredAt,
			IsReversed:           row.IsReversed,
			ReversalOfMovementID: row.ReversalOfMovementID,
			CreatedAt:            row.CreatedAt,
		})
	}
	return movements
}
