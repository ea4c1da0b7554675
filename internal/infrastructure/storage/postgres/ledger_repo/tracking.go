package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const trackingTable = "product_tracking"

var _ ledger.TrackingRepository = (*TrackingRepo)(nil)

// TrackingRepo implements ledger.TrackingRepository.
type TrackingRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewTrackingRepo creates the tracking config repository.
func NewTrackingRepo(txManager *postgres.TxManager) *TrackingRepo {
	return &TrackingRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get returns the product's tracking config. A missing row resolves to
// the untracked FIFO default rather than an error.
func (r *TrackingRepo) Get(ctx context.Context, companyID string, productID id.ID) (entity.ProductTracking, error) {
	q := r.builder.Select("company_id", "product_id", "mode", "allocation", "updated_at").
		From(trackingTable).
		Where(squirrel.Eq{
			"company_id": companyID,
			"product_id": productID,
		}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return entity.ProductTracking{}, fmt.Errorf("build query: %w", err)
	}

	var tracking entity.ProductTracking
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &tracking, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.ProductTracking{
				CompanyID:  companyID,
				ProductID:  productID,
				Mode:       entity.TrackingNone,
				Allocation: entity.AllocationFIFO,
			}, nil
		}
		return entity.ProductTracking{}, fmt.Errorf("get tracking: %w", err)
	}
	return tracking, nil
}

// Set upserts the product's tracking config.
func (r *TrackingRepo) Set(ctx context.Context, tracking entity.ProductTracking) error {
	sql := `
		INSERT INTO product_tracking (company_id, product_id, mode, allocation, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (company_id, product_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			allocation = EXCLUDED.allocation,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql,
		tracking.CompanyID, tracking.ProductID, tracking.Mode, tracking.Allocation, tracking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert tracking: %w", err)
	}
	return nil
}
