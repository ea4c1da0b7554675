package ledger

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// TraceLineage reconstructs the full movement chain for a batch or
// serial identifier, chronologically: receipt, processing, transfers,
// consumption or sale, and any compensating entries along the way.
// Read-only; used by compliance and reporting collaborators to prove
// seed-to-sale provenance.
func (s *Service) TraceLineage(ctx context.Context, companyID, batchOrSerial string) ([]entity.Movement, error) {
	if companyID == "" {
		return nil, apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if batchOrSerial == "" {
		return nil, apperror.NewValidation("batch or serial identifier is required").
			WithDetail("field", "reference")
	}

	movements, err := s.movements.TraceLineage(ctx, companyID, batchOrSerial)
	if err != nil {
		return nil, fmt.Errorf("trace lineage: %w", err)
	}
	return movements, nil
}

// RegisterDetail persists a detail line on behalf of an owning module
// and immediately generates its movements. The common path for callers
// that do not store details themselves.
func (s *Service) RegisterDetail(ctx context.Context, detail *entity.TransactionDetail, policy StockPolicy) ([]entity.Movement, error) {
	if err := detail.Validate(ctx); err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var movements []entity.Movement
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.details.Create(ctx, detail); err != nil {
			return fmt.Errorf("create detail: %w", err)
		}
		movements, err = s.GenerateWithPolicy(ctx, detail, policy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// GetDetail retrieves a stored transaction detail.
func (s *Service) GetDetail(ctx context.Context, detailID id.ID) (*entity.TransactionDetail, error) {
	return s.details.GetByID(ctx, detailID)
}

// ListDetailsByHeader retrieves every detail line referencing one
// business transaction header.
func (s *Service) ListDetailsByHeader(ctx context.Context, companyID, headerID string, txType entity.TransactionType) ([]entity.TransactionDetail, error) {
	if companyID == "" {
		return nil, apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if headerID == "" {
		return nil, apperror.NewValidation("header reference is required").
			WithDetail("field", "headerId")
	}
	if !txType.IsValid() {
		return nil, apperror.NewUnknownTransactionType(string(txType))
	}
	return s.details.ListByHeader(ctx, companyID, headerID, txType)
}

// SetTracking upserts a product's tracking configuration. Changing the
// mode affects future generation only; recorded movements keep whatever
// identifiers they were written with.
func (s *Service) SetTracking(ctx context.Context, tracking entity.ProductTracking) error {
	if tracking.CompanyID == "" {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if id.IsNil(tracking.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if !tracking.Mode.IsValid() {
		return apperror.NewValidation("unknown tracking mode").
			WithDetail("mode", string(tracking.Mode))
	}
	if !tracking.Allocation.IsValid() {
		return apperror.NewValidation("unknown allocation policy").
			WithDetail("allocation", string(tracking.Allocation))
	}
	tracking.UpdatedAt = time.Now().UTC()
	return s.tracking.Set(ctx, tracking)
}

// GetTracking returns a product's tracking configuration, falling back
// to the untracked FIFO default when nothing is configured.
func (s *Service) GetTracking(ctx context.Context, companyID string, productID id.ID) (entity.ProductTracking, error) {
	if companyID == "" {
		return entity.ProductTracking{}, apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	return s.tracking.Get(ctx, companyID, productID)
}

// SetBatchExpiry records the expiry date FEFO ordering reads.
func (s *Service) SetBatchExpiry(ctx context.Context, companyID string, productID, locationID id.ID, batchNumber string, expiresAt time.Time) error {
	batch, err := s.batches.GetByNumber(ctx, companyID, productID, locationID, batchNumber)
	if err != nil {
		return err
	}
	return s.batches.SetExpiry(ctx, batch.ID, expiresAt)
}
