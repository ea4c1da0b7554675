package ledger

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// ComputeSOH derives stock on hand for a scope by replaying the ledger:
// the signed sum of all movements with occurredAt <= asOf, compensating
// entries included. A zero asOf means now.
//
// There is no stored "current stock" value anywhere; current and
// historical queries run the identical replay, so they can never drift
// apart. The query is a plain snapshot read and never blocks writers.
func (s *Service) ComputeSOH(ctx context.Context, scope Scope, asOf time.Time) (types.Quantity, error) {
	if scope.CompanyID == "" {
		return 0, apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if id.IsNil(scope.ProductID) {
		return 0, apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	soh, err := s.movements.SumInScope(ctx, scope, asOf)
	if err != nil {
		return 0, fmt.Errorf("sum movements: %w", err)
	}
	return soh, nil
}

// Turnover reports inbound/outbound totals plus opening and closing
// balances for a period, all derived from the same replay as ComputeSOH.
func (s *Service) Turnover(ctx context.Context, filter TurnoverFilter) (Turnover, error) {
	if filter.CompanyID == "" {
		return Turnover{}, apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if filter.FromDate.IsZero() || filter.ToDate.IsZero() {
		return Turnover{}, apperror.NewValidation("period is required").
			WithDetail("fields", "fromDate, toDate")
	}
	if !filter.FromDate.Before(filter.ToDate) {
		return Turnover{}, apperror.NewValidation("fromDate must precede toDate")
	}

	return s.movements.GetTurnover(ctx, filter)
}

// History returns filtered movements for a product, newest first.
func (s *Service) History(ctx context.Context, companyID string, productID id.ID, filter MovementFilter) ([]entity.Movement, error) {
	if companyID == "" {
		return nil, apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if id.IsNil(productID) {
		return nil, apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	return s.movements.History(ctx, companyID, productID, filter)
}
