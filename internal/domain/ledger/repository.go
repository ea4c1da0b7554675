// Package ledger provides the movement-based inventory ledger: movement
// generation from transaction details, stock-on-hand replay, compensating
// reversal, and batch/serial traceability.
package ledger

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Scope selects the slice of the ledger a query sums over. CompanyID and
// ProductID are required; the rest narrow the scope.
type Scope struct {
	CompanyID    string
	ProductID    id.ID
	LocationID   *id.ID
	BatchNumber  *string
	SerialNumber *string
}

// DetailRepository stores transaction detail lines. Append-only: details
// are created once by owning modules and never mutated.
type DetailRepository interface {
	// Create persists a detail line
	Create(ctx context.Context, detail *entity.TransactionDetail) error

	// GetByID retrieves a detail line
	GetByID(ctx context.Context, detailID id.ID) (*entity.TransactionDetail, error)

	// ListByHeader retrieves all lines referencing one header
	ListByHeader(ctx context.Context, companyID, headerID string, txType entity.TransactionType) ([]entity.TransactionDetail, error)
}

// MovementRepository stores ledger movements. Insert-only by design: no
// update path exists for quantity or direction. The single permitted
// mutation is flipping the IsReversed marker.
type MovementRepository interface {
	// CreateMovements batch inserts movements within the caller's transaction
	CreateMovements(ctx context.Context, movements []entity.Movement) error

	// GetByDetailID retrieves every movement (originals and compensations)
	// for a transaction detail, in creation order
	GetByDetailID(ctx context.Context, detailID id.ID) ([]entity.Movement, error)

	// MarkReversed sets the IsReversed flag on the given movements
	MarkReversed(ctx context.Context, movementIDs []id.ID) error

	// SumInScope replays the ledger: signed sum over movements in scope
	// with occurredAt <= asOf
	SumInScope(ctx context.Context, scope Scope, asOf time.Time) (types.Quantity, error)

	// TraceLineage returns all movements sharing a batch or serial
	// identifier, chronologically
	TraceLineage(ctx context.Context, companyID, batchOrSerial string) ([]entity.Movement, error)

	// History returns filtered movements for a product, newest first
	History(ctx context.Context, companyID string, productID id.ID, filter MovementFilter) ([]entity.Movement, error)

	// GetTurnover sums receipts and issues for a period
	GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error)

	// LockScope serializes concurrent writers against a (product, location)
	// scope for the duration of the surrounding transaction. Used only for
	// strict OUT allocation; readers never take this lock.
	LockScope(ctx context.Context, companyID string, productID, locationID id.ID) error
}

// BatchRepository stores the batch registry: identity and dates per
// (product, location, batch number). Remaining stock is never stored;
// it is derived from the movement ledger at query time.
type BatchRepository interface {
	// EnsureExists creates the registry row if missing (first IN movement
	// for a batch)
	EnsureExists(ctx context.Context, batch entity.StockBatch) error

	// GetByNumber retrieves one batch row
	GetByNumber(ctx context.Context, companyID string, productID, locationID id.ID, batchNumber string) (entity.StockBatch, error)

	// SetExpiry records the expiry date used by FEFO ordering
	SetExpiry(ctx context.Context, batchID id.ID, expiresAt time.Time) error

	// ListAvailableForUpdate returns batches with ledger-derived remaining
	// stock, ordered per the allocation policy, with the batch rows locked
	// until the surrounding transaction ends. Batches with nothing
	// remaining are omitted.
	ListAvailableForUpdate(ctx context.Context, companyID string, productID, locationID id.ID, policy entity.AllocationPolicy) ([]entity.BatchAvailability, error)
}

// TrackingRepository stores per-product tracking configuration.
type TrackingRepository interface {
	// Get returns the product's tracking config. Missing rows resolve to
	// the untracked FIFO default.
	Get(ctx context.Context, companyID string, productID id.ID) (entity.ProductTracking, error)

	// Set upserts the product's tracking config
	Set(ctx context.Context, tracking entity.ProductTracking) error
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	LocationID  *id.ID
	Direction   *entity.Direction
	BatchNumber *string
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// TurnoverFilter selects the period and scope for a turnover report.
type TurnoverFilter struct {
	CompanyID  string
	ProductID  *id.ID
	LocationID *id.ID
	FromDate   time.Time
	ToDate     time.Time
}

// Turnover is the receipt/issue roll-up for a period, with opening and
// closing balances derived from the same replay as every SOH query.
type Turnover struct {
	ProductID      id.ID          `json:"productId,omitempty"`
	LocationID     id.ID          `json:"locationId,omitempty"`
	OpeningBalance types.Quantity `json:"openingBalance"`
	Inbound        types.Quantity `json:"inbound"`
	Outbound       types.Quantity `json:"outbound"`
	ClosingBalance types.Quantity `json:"closingBalance"`
}
