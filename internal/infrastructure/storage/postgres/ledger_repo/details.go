package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const detailsTable = "transaction_details"

var detailColumns = []string{
	"id", "company_id", "header_id", "transaction_type",
	"product_id", "location_id", "quantity",
	"unit_price", "line_total", "tax_amount",
	"batch_number", "serial_number", "created_at",
}

var _ ledger.DetailRepository = (*DetailRepo)(nil)

// DetailRepo implements ledger.DetailRepository. Append-only: details
// are written once by their owning module and never updated.
type DetailRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewDetailRepo creates the detail repository.
func NewDetailRepo(txManager *postgres.TxManager) *DetailRepo {
	return &DetailRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create persists a detail line.
func (r *DetailRepo) Create(ctx context.Context, detail *entity.TransactionDetail) error {
	q := r.builder.Insert(detailsTable).
		Columns(detailColumns...).
		Values(
			detail.ID, detail.CompanyID, detail.HeaderID, detail.TransactionType,
			detail.ProductID, detail.LocationID, detail.Quantity.Int64Scaled(),
			detail.UnitPrice, detail.LineTotal, detail.TaxAmount,
			detail.BatchNumber, detail.SerialNumber, detail.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert detail: %w", err)
	}
	return nil
}

// GetByID retrieves a detail line.
func (r *DetailRepo) GetByID(ctx context.Context, detailID id.ID) (*entity.TransactionDetail, error) {
	q := r.builder.Select(detailColumns...).
		From(detailsTable).
		Where(squirrel.Eq{"id": detailID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row detailRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transaction detail", detailID)
		}
		return nil, fmt.Errorf("get detail: %w", err)
	}
	return row.toEntity(), nil
}

// ListByHeader retrieves all lines referencing one header.
func (r *DetailRepo) ListByHeader(ctx context.Context, companyID, headerID string, txType entity.TransactionType) ([]entity.TransactionDetail, error) {
	q := r.builder.Select(detailColumns...).
		From(detailsTable).
		Where(squirrel.Eq{
			"company_id":       companyID,
			"header_id":        headerID,
			"transaction_type": txType,
		}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []detailRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select details: %w", err)
	}

	details := make([]entity.TransactionDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, *row.toEntity())
	}
	return details, nil
}

type detailRow struct {
	ID              id.ID                  `db:"id"`
	CompanyID       string                 `db:"company_id"`
	HeaderID        string                 `db:"header_id"`
	TransactionType entity.TransactionType `db:"transaction_type"`
	ProductID       id.ID                  `db:"product_id"`
	LocationID      id.ID                  `db:"location_id"`
	Quantity        int64                  `db:"quantity"`
	UnitPrice       decimal.Decimal        `db:"unit_price"`
	LineTotal       decimal.Decimal        `db:"line_total"`
	TaxAmount       decimal.Decimal        `db:"tax_amount"`
	BatchNumber     *string                `db:"batch_number"`
	SerialNumber    *string                `db:"serial_number"`
	CreatedAt       time.Time              `db:"created_at"`
}

func (row detailRow) toEntity() *entity.TransactionDetail {
	return &entity.TransactionDetail{
		ID:              row.ID,
		CompanyID:       row.CompanyID,
		HeaderID:        row.HeaderID,
		TransactionType: row.TransactionType,
		ProductID:       row.ProductID,
		LocationID:      row.LocationID,
		Quantity:        types.NewQuantityFromInt64Scaled(row.Quantity),
		UnitPrice:       row.UnitPrice,
		LineTotal:       row.LineTotal,
		TaxAmount:       row.TaxAmount,
		BatchNumber:     row.BatchNumber,
		SerialNumber:    row.SerialNumber,
		CreatedAt:       row.CreatedAt,
	}
}
