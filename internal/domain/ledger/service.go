package ledger

import (
	"context"

	"stockledger/internal/core/company"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
)

// AuditSink records ledger operations for the audit trail. Optional;
// a nil sink disables auditing.
type AuditSink interface {
	Record(ctx context.Context, action string, detailID id.ID, payload any) error
}

// Service is the ledger's write and read facade: movement generation,
// stock-on-hand calculation, reversal, and traceability. One instance
// serves all companies; every call is scoped explicitly.
type Service struct {
	details   DetailRepository
	movements MovementRepository
	batches   BatchRepository
	tracking  TrackingRepository
	policy    StockPolicy
	audit     AuditSink
	txManager tx.Manager // Optional. If nil, obtained from context.
}

// NewService creates the ledger service. policy is the default
// negative-stock policy; callers may override per call. audit may be nil.
func NewService(
	details DetailRepository,
	movements MovementRepository,
	batches BatchRepository,
	tracking TrackingRepository,
	policy StockPolicy,
	audit AuditSink,
	txManager tx.Manager,
) *Service {
	if policy == nil {
		policy = StrictStockPolicy{}
	}
	return &Service{
		details:   details,
		movements: movements,
		batches:   batches,
		tracking:  tracking,
		policy:    policy,
		audit:     audit,
		txManager: txManager,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return company.GetTxManager(ctx)
}

func (s *Service) recordAudit(ctx context.Context, action string, detailID id.ID, payload any) {
	if s.audit == nil {
		return
	}
	// Audit failures must not fail the business operation; the movement
	// ledger is itself a complete history.
	_ = s.audit.Record(ctx, action, detailID, payload)
}
