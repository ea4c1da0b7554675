package ledger

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/types"
	"stockledger/pkg/logger"
)

// Audit trail action names.
const (
	auditActionGenerate = "generate"
	auditActionReverse  = "reverse"
)

// Generate converts a finalized transaction detail into ledger movements
// using the service's default stock policy.
//
// Generation is idempotent per detail id: reprocessing a detail that
// already has movements returns the previously generated set unchanged.
// Callers with at-least-once delivery can safely retry.
func (s *Service) Generate(ctx context.Context, detail *entity.TransactionDetail) ([]entity.Movement, error) {
	return s.GenerateWithPolicy(ctx, detail, s.policy)
}

// GenerateWithPolicy is Generate with a caller-chosen negative-stock
// policy. All movements for one call commit as a single unit; a failed
// validation writes nothing.
func (s *Service) GenerateWithPolicy(ctx context.Context, detail *entity.TransactionDetail, policy StockPolicy) ([]entity.Movement, error) {
	if policy == nil {
		policy = s.policy
	}

	if err := detail.Validate(ctx); err != nil {
		return nil, err
	}

	direction, ok := detail.TransactionType.Direction()
	if !ok {
		return nil, apperror.NewUnknownTransactionType(string(detail.TransactionType))
	}

	// Fast path: a redelivered detail is not an error.
	existing, err := s.movements.GetByDetailID(ctx, detail.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing movements: %w", err)
	}
	if set := originalsOf(existing); len(set) > 0 {
		logger.Debug(ctx, "movements already generated",
			"detail_id", detail.ID,
			"count", len(set),
		)
		return set, nil
	}

	tracking, err := s.tracking.Get(ctx, detail.CompanyID, detail.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get tracking config: %w", err)
	}

	// The identifier must match the tracking mode: batch allocation is
	// defined over batches, so a serial alone cannot name one.
	switch {
	case tracking.Mode == entity.TrackingBatch && detail.Batch() == "":
		return nil, apperror.NewMissingBatchNumber(detail.ProductID.String()).
			WithDetail("required", "batchNumber")
	case tracking.Mode == entity.TrackingSerial && detail.Serial() == "":
		return nil, apperror.NewMissingBatchNumber(detail.ProductID.String()).
			WithDetail("required", "serialNumber")
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var generated []entity.Movement
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// Serialize writers on this (product, location) scope. Readers
		// never take this lock; SOH queries stay snapshot reads.
		if err := s.movements.LockScope(ctx, detail.CompanyID, detail.ProductID, detail.LocationID); err != nil {
			return fmt.Errorf("lock scope: %w", err)
		}

		// Re-check under the lock: two deliveries racing on the same
		// detail must still produce exactly one set.
		existing, err := s.movements.GetByDetailID(ctx, detail.ID)
		if err != nil {
			return fmt.Errorf("recheck existing movements: %w", err)
		}
		if set := originalsOf(existing); len(set) > 0 {
			generated = set
			return nil
		}

		switch direction {
		case entity.DirectionIn:
			generated, err = s.generateIn(ctx, detail, tracking)
		case entity.DirectionOut:
			generated, err = s.generateOut(ctx, detail, tracking, policy)
		}
		if err != nil {
			return err
		}

		if err := s.movements.CreateMovements(ctx, generated); err != nil {
			return fmt.Errorf("append movements: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, auditActionGenerate, detail.ID, generated)
	logger.Info(ctx, "movements generated",
		"detail_id", detail.ID,
		"transaction_type", detail.TransactionType,
		"direction", direction,
		"count", len(generated),
	)

	return generated, nil
}

// generateIn produces the single IN movement for a detail and registers
// the batch on first receipt.
func (s *Service) generateIn(ctx context.Context, detail *entity.TransactionDetail, tracking entity.ProductTracking) ([]entity.Movement, error) {
	m := entity.NewMovement(
		detail.ID, detail.CompanyID, entity.DirectionIn,
		detail.ProductID, detail.LocationID,
		detail.Quantity, detail.CreatedAt,
	)
	m.BatchNumber = detail.BatchNumber
	m.SerialNumber = detail.SerialNumber

	if tracking.Mode == entity.TrackingBatch && detail.Batch() != "" {
		batch := entity.NewStockBatch(detail.CompanyID, detail.ProductID, detail.LocationID, detail.Batch(), detail.CreatedAt)
		if err := s.batches.EnsureExists(ctx, batch); err != nil {
			return nil, fmt.Errorf("register batch: %w", err)
		}
	}

	return []entity.Movement{m}, nil
}

// generateOut produces OUT movements, allocating across batches when the
// product is batch-tracked.
func (s *Service) generateOut(ctx context.Context, detail *entity.TransactionDetail, tracking entity.ProductTracking, policy StockPolicy) ([]entity.Movement, error) {
	allowNegative, err := policy.AllowNegative(ctx, PolicyInput{
		TransactionType: detail.TransactionType,
		ProductID:       detail.ProductID.String(),
		LocationID:      detail.LocationID.String(),
		TrackingMode:    tracking.Mode,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate stock policy: %w", err)
	}

	switch tracking.Mode {
	case entity.TrackingBatch:
		return s.allocateBatchOut(ctx, detail, tracking, allowNegative)
	case entity.TrackingSerial:
		return s.serialOut(ctx, detail, allowNegative)
	default:
		return s.plainOut(ctx, detail, allowNegative)
	}
}

// sufficiencyAsOf returns the replay horizon for the sufficiency check.
// The check guards current stock, so a backdated line still replays the
// whole ledger; a future-dated line includes everything up to itself.
func sufficiencyAsOf(occurredAt time.Time) time.Time {
	now := time.Now().UTC()
	if occurredAt.After(now) {
		return occurredAt
	}
	return now
}

// plainOut handles untracked products: one movement, sufficiency checked
// on the (product, location) scope under the lock already held.
func (s *Service) plainOut(ctx context.Context, detail *entity.TransactionDetail, allowNegative bool) ([]entity.Movement, error) {
	if !allowNegative {
		scope := Scope{
			CompanyID:  detail.CompanyID,
			ProductID:  detail.ProductID,
			LocationID: &detail.LocationID,
		}
		soh, err := s.movements.SumInScope(ctx, scope, sufficiencyAsOf(detail.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("compute soh: %w", err)
		}
		if soh < detail.Quantity {
			return nil, apperror.NewInsufficientStock(
				detail.ProductID.String(),
				detail.Quantity.Float64(),
				soh.Float64(),
			)
		}
	}

	m := entity.NewMovement(
		detail.ID, detail.CompanyID, entity.DirectionOut,
		detail.ProductID, detail.LocationID,
		detail.Quantity, detail.CreatedAt,
	)
	m.BatchNumber = detail.BatchNumber
	m.SerialNumber = detail.SerialNumber
	return []entity.Movement{m}, nil
}

// serialOut handles serial-tracked products.
func (s *Service) serialOut(ctx context.Context, detail *entity.TransactionDetail, allowNegative bool) ([]entity.Movement, error) {
	if detail.Serial() == "" {
		return nil, apperror.NewMissingBatchNumber(detail.ProductID.String()).
			WithDetail("required", "serialNumber")
	}

	if !allowNegative {
		serial := detail.Serial()
		scope := Scope{
			CompanyID:    detail.CompanyID,
			ProductID:    detail.ProductID,
			LocationID:   &detail.LocationID,
			SerialNumber: &serial,
		}
		soh, err := s.movements.SumInScope(ctx, scope, sufficiencyAsOf(detail.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("compute soh: %w", err)
		}
		if soh < detail.Quantity {
			return nil, apperror.NewInsufficientStock(
				detail.ProductID.String(),
				detail.Quantity.Float64(),
				soh.Float64(),
			).WithDetail("serial_number", serial)
		}
	}

	m := entity.NewMovement(
		detail.ID, detail.CompanyID, entity.DirectionOut,
		detail.ProductID, detail.LocationID,
		detail.Quantity, detail.CreatedAt,
	)
	m.BatchNumber = detail.BatchNumber
	m.SerialNumber = detail.SerialNumber
	return []entity.Movement{m}, nil
}

// allocateBatchOut splits a batch-tracked OUT across batches: the line's
// own batch first, then remaining batches in policy order (FIFO receipt
// order or FEFO expiry order), greedily until covered. The batch rows
// stay locked until the surrounding transaction commits, which
// serializes concurrent allocations against the same scope.
func (s *Service) allocateBatchOut(ctx context.Context, detail *entity.TransactionDetail, tracking entity.ProductTracking, allowNegative bool) ([]entity.Movement, error) {
	available, err := s.batches.ListAvailableForUpdate(ctx, detail.CompanyID, detail.ProductID, detail.LocationID, tracking.Allocation)
	if err != nil {
		return nil, fmt.Errorf("list available batches: %w", err)
	}

	pinned := detail.Batch()
	if pinned != "" {
		// The line's identifier must name a registered batch.
		if _, err := s.batches.GetByNumber(ctx, detail.CompanyID, detail.ProductID, detail.LocationID, pinned); err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewMissingBatchNumber(detail.ProductID.String()).
					WithDetail("batch_number", pinned)
			}
			return nil, fmt.Errorf("get batch: %w", err)
		}
		available = pinBatchFirst(available, pinned)
	}

	allocations, shortfall := allocateAcrossBatches(detail.Quantity, available)
	if shortfall.IsPositive() {
		if !allowNegative {
			return nil, apperror.NewInsufficientStock(
				detail.ProductID.String(),
				detail.Quantity.Float64(),
				totalAvailable(available).Float64(),
			).WithDetail("location_id", detail.LocationID.String())
		}

		// Permissive: the uncovered remainder lands on the line's own
		// batch, driving it negative rather than inventing stock.
		allocations = mergeShortfall(allocations, pinned, shortfall)
	}

	movements := make([]entity.Movement, 0, len(allocations))
	for _, alloc := range allocations {
		m := entity.NewMovement(
			detail.ID, detail.CompanyID, entity.DirectionOut,
			detail.ProductID, detail.LocationID,
			alloc.Quantity, detail.CreatedAt,
		)
		batch := alloc.BatchNumber
		m.BatchNumber = &batch
		m.SerialNumber = detail.SerialNumber
		movements = append(movements, m)
	}
	return movements, nil
}

// pinBatchFirst moves the named batch to the front of the allocation
// order, inserting a zero-remaining placeholder when the ledger shows
// nothing left in it.
func pinBatchFirst(available []entity.BatchAvailability, batchNumber string) []entity.BatchAvailability {
	for i, ba := range available {
		if ba.Batch.BatchNumber == batchNumber {
			reordered := make([]entity.BatchAvailability, 0, len(available))
			reordered = append(reordered, available[i])
			reordered = append(reordered, available[:i]...)
			reordered = append(reordered, available[i+1:]...)
			return reordered
		}
	}

	placeholder := entity.BatchAvailability{
		Batch: entity.StockBatch{BatchNumber: batchNumber},
	}
	return append([]entity.BatchAvailability{placeholder}, available...)
}

// mergeShortfall adds the uncovered quantity to the allocation for the
// given batch, or to the last allocation when the batch is empty-handed.
func mergeShortfall(allocations []batchAllocation, batchNumber string, shortfall types.Quantity) []batchAllocation {
	for i := range allocations {
		if allocations[i].BatchNumber == batchNumber {
			allocations[i].Quantity += shortfall
			return allocations
		}
	}
	if batchNumber != "" {
		return append(allocations, batchAllocation{BatchNumber: batchNumber, Quantity: shortfall})
	}
	if len(allocations) > 0 {
		allocations[len(allocations)-1].Quantity += shortfall
		return allocations
	}
	return []batchAllocation{{Quantity: shortfall}}
}

// originalsOf filters out compensating movements, leaving the set the
// generator originally produced for the detail.
func originalsOf(movements []entity.Movement) []entity.Movement {
	originals := make([]entity.Movement, 0, len(movements))
	for _, m := range movements {
		if !m.IsCompensation() {
			originals = append(originals, m)
		}
	}
	return originals
}
