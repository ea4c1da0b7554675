package ledger

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/pkg/logger"
)

// Reverse nets out the stock effect of a detail's movements by inserting
// compensating entries. History is never edited: every original movement
// keeps its quantity and direction, gains the IsReversed marker, and is
// offset by a new opposite-direction movement linked back to it.
//
// Reversing an already-reversed detail is a no-op returning the existing
// compensating set. Reversing a detail that never produced movements
// fails with REVERSAL_NOT_FOUND.
func (s *Service) Reverse(ctx context.Context, detailID id.ID, reason string) ([]entity.Movement, error) {
	if id.IsNil(detailID) {
		return nil, apperror.NewValidation("transaction detail id is required").
			WithDetail("field", "transactionDetailId")
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var compensations []entity.Movement
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		all, err := s.movements.GetByDetailID(ctx, detailID)
		if err != nil {
			return fmt.Errorf("get movements: %w", err)
		}
		if len(all) == 0 {
			return apperror.NewReversalNotFound(detailID.String())
		}

		// Serialize concurrent reversals of the same detail against the
		// movement scope; re-read afterwards so only one caller creates
		// the compensating set.
		first := all[0]
		if err := s.movements.LockScope(ctx, first.CompanyID, first.ProductID, first.LocationID); err != nil {
			return fmt.Errorf("lock scope: %w", err)
		}
		all, err = s.movements.GetByDetailID(ctx, detailID)
		if err != nil {
			return fmt.Errorf("reread movements: %w", err)
		}

		pending := make([]entity.Movement, 0, len(all))
		prior := make([]entity.Movement, 0)
		for _, m := range all {
			if m.IsCompensation() {
				prior = append(prior, m)
				continue
			}
			if !m.IsReversed {
				pending = append(pending, m)
			}
		}

		if len(pending) == 0 {
			// Fully reversed already; idempotent replay.
			compensations = prior
			return nil
		}

		now := time.Now().UTC()
		reversedIDs := make([]id.ID, 0, len(pending))
		compensations = make([]entity.Movement, 0, len(pending))
		for _, m := range pending {
			compensations = append(compensations, m.Compensation(now))
			reversedIDs = append(reversedIDs, m.ID)
		}

		if err := s.movements.CreateMovements(ctx, compensations); err != nil {
			return fmt.Errorf("append compensations: %w", err)
		}
		if err := s.movements.MarkReversed(ctx, reversedIDs); err != nil {
			return fmt.Errorf("mark reversed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, auditActionReverse, detailID, map[string]any{
		"reason":        reason,
		"compensations": compensations,
	})
	logger.Info(ctx, "movements reversed",
		"detail_id", detailID,
		"reason", reason,
		"count", len(compensations),
	)

	return compensations, nil
}
