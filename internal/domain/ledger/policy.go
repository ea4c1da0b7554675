package ledger

import (
	"context"

	"stockledger/internal/core/entity"
)

// StockPolicy decides whether an OUT movement may drive stock on hand
// negative. Different owning modules carry different tolerance: retail
// sale flows often post first and reconcile later, while production
// consumption must never exceed what was received. The policy is a call
// parameter, not a global constant.
type StockPolicy interface {
	// AllowNegative reports whether the described OUT may skip the
	// sufficiency check.
	AllowNegative(ctx context.Context, in PolicyInput) (bool, error)
}

// PolicyInput describes the pending OUT movement for policy evaluation.
type PolicyInput struct {
	TransactionType entity.TransactionType
	ProductID       string
	LocationID      string
	TrackingMode    entity.TrackingMode
}

// StrictStockPolicy forbids negative stock everywhere. The default.
type StrictStockPolicy struct{}

func (StrictStockPolicy) AllowNegative(ctx context.Context, in PolicyInput) (bool, error) {
	return false, nil
}

// PermissiveStockPolicy skips the sufficiency check everywhere.
// Suitable for bootstrapping and data migration flows.
type PermissiveStockPolicy struct{}

func (PermissiveStockPolicy) AllowNegative(ctx context.Context, in PolicyInput) (bool, error) {
	return true, nil
}
