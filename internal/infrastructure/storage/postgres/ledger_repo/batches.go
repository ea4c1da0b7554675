package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const batchesTable = "stock_batches"

var batchColumns = []string{
	"id", "company_id", "product_id", "location_id",
	"batch_number", "received_at", "expires_at", "created_at",
}

var _ ledger.BatchRepository = (*BatchRepo)(nil)

// BatchRepo implements ledger.BatchRepository. The table stores batch
// identity and dates only; remaining stock is always derived by joining
// the movement ledger, so it can never drift from the movements.
type BatchRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewBatchRepo creates the batch registry repository.
func NewBatchRepo(txManager *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// EnsureExists creates the registry row if missing. Called on the first
// IN movement for a batch; concurrent receipts race safely on the
// unique constraint.
func (r *BatchRepo) EnsureExists(ctx context.Context, batch entity.StockBatch) error {
	sql := `
		INSERT INTO stock_batches (id, company_id, product_id, location_id, batch_number, received_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, product_id, location_id, batch_number) DO NOTHING
	`
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql,
		batch.ID, batch.CompanyID, batch.ProductID, batch.LocationID,
		batch.BatchNumber, batch.ReceivedAt, batch.ExpiresAt, batch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ensure batch: %w", err)
	}
	return nil
}

// GetByNumber retrieves one batch row.
func (r *BatchRepo) GetByNumber(ctx context.Context, companyID string, productID, locationID id.ID, batchNumber string) (entity.StockBatch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{
			"company_id":   companyID,
			"product_id":   productID,
			"location_id":  locationID,
			"batch_number": batchNumber,
		}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return entity.StockBatch{}, fmt.Errorf("build query: %w", err)
	}

	var batch entity.StockBatch
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &batch, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.StockBatch{}, apperror.NewNotFound("batch", batchNumber)
		}
		return entity.StockBatch{}, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// SetExpiry records the expiry date used by FEFO ordering.
func (r *BatchRepo) SetExpiry(ctx context.Context, batchID id.ID, expiresAt time.Time) error {
	q := r.builder.Update(batchesTable).
		Set("expires_at", expiresAt).
		Where(squirrel.Eq{"id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID)
	}
	return nil
}

// ListAvailableForUpdate returns batches with ledger-derived remaining
// stock in allocation order, their registry rows locked until the
// surrounding transaction ends. The row locks serialize concurrent OUT
// allocations against the same scope; SOH readers never touch them.
//
// Remaining stock is computed by replaying the movement ledger per
// batch; batches with nothing left are omitted.
func (r *BatchRepo) ListAvailableForUpdate(ctx context.Context, companyID string, productID, locationID id.ID, policy entity.AllocationPolicy) ([]entity.BatchAvailability, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("ListAvailableForUpdate requires transaction context")
	}

	order := "b.received_at, b.batch_number"
	if policy == entity.AllocationFEFO {
		order = "b.expires_at NULLS LAST, b.received_at, b.batch_number"
	}

	sql := fmt.Sprintf(`
		WITH locked AS (
			SELECT id, company_id, product_id, location_id, batch_number, received_at, expires_at, created_at
			FROM stock_batches
			WHERE company_id = $1 AND product_id = $2 AND location_id = $3
			FOR UPDATE
		)
		SELECT b.id, b.company_id, b.product_id, b.location_id,
		       b.batch_number, b.received_at, b.expires_at, b.created_at,
		       COALESCE(SUM(CASE WHEN m.direction = 'IN' THEN m.quantity ELSE -m.quantity END), 0) AS remaining
		FROM locked b
		LEFT JOIN ledger_movements m
		  ON m.company_id = b.company_id
		 AND m.product_id = b.product_id
		 AND m.location_id = b.location_id
		 AND m.batch_number = b.batch_number
		GROUP BY b.id, b.company_id, b.product_id, b.location_id,
		         b.batch_number, b.received_at, b.expires_at, b.created_at
		HAVING COALESCE(SUM(CASE WHEN m.direction = 'IN' THEN m.quantity ELSE -m.quantity END), 0) > 0
		ORDER BY %s
	`, order)

	var rows []batchAvailabilityRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, companyID, productID, locationID); err != nil {
		return nil, fmt.Errorf("select available batches: %w", err)
	}

	out := make([]entity.BatchAvailability, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.BatchAvailability{
			Batch: entity.StockBatch{
				ID:          row.ID,
				CompanyID:   row.CompanyID,
				ProductID:   row.ProductID,
				LocationID:  row.LocationID,
				BatchNumber: row.BatchNumber,
				ReceivedAt:  row.ReceivedAt,
				ExpiresAt:   row.ExpiresAt,
				CreatedAt:   row.CreatedAt,
			},
			Remaining: types.NewQuantityFromInt64Scaled(row.Remaining),
		})
	}
	return out, nil
}

type batchAvailabilityRow struct {
	ID          id.ID      `db:"id"`
	CompanyID   string     `db:"company_id"`
	ProductID   id.ID      `db:"product_id"`
	LocationID  id.ID      `db:"location_id"`
	BatchNumber string     `db:"batch_number"`
	ReceivedAt  time.Time  `db:"received_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
	CreatedAt   time.Time  `db:"created_at"`
	Remaining   int64      `db:"remaining"`
}
