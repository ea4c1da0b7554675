package entity

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Movement is one ledger entry recording a single stock increase or
// decrease. Movements are immutable: they are never updated or deleted,
// only added to. Corrections happen through compensating entries, not
// edits. The sole mutable field is the IsReversed marker, which is a
// query optimization and never the mechanism of correction.
type Movement struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// TransactionDetailID is the origin reference. Several movements may
	// share one detail when a line is split across batches.
	TransactionDetailID id.ID `db:"transaction_detail_id" json:"transactionDetailId"`

	CompanyID string `db:"company_id" json:"companyId"`

	// Direction is IN or OUT; Quantity stays a positive magnitude
	Direction Direction      `db:"direction" json:"direction"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`

	ProductID  id.ID `db:"product_id" json:"productId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	// BatchNumber/SerialNumber are nil for untracked products
	BatchNumber  *string `db:"batch_number" json:"batchNumber,omitempty"`
	SerialNumber *string `db:"serial_number" json:"serialNumber,omitempty"`

	// OccurredAt is the business timestamp SOH replay sums over
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`

	// IsReversed is set once by the reversal service, never cleared
	IsReversed bool `db:"is_reversed" json:"isReversed"`

	// ReversalOfMovementID points from a compensating movement to the
	// movement it offsets
	ReversalOfMovementID *id.ID `db:"reversal_of_movement_id" json:"reversalOfMovementId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovement creates a movement with generated ID.
func NewMovement(detailID id.ID, companyID string, direction Direction, productID, locationID id.ID, quantity types.Quantity, occurredAt time.Time) Movement {
	return Movement{
		ID:                  id.New(),
		TransactionDetailID: detailID,
		CompanyID:           companyID,
		Direction:           direction,
		Quantity:            quantity,
		ProductID:           productID,
		LocationID:          locationID,
		OccurredAt:          occurredAt,
		CreatedAt:           time.Now().UTC(),
	}
}

// SignedQuantity returns the quantity with direction applied.
// IN is positive, OUT is negative.
func (m *Movement) SignedQuantity() types.Quantity {
	if m.Direction == DirectionOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// Compensation builds the compensating movement for m: identical scope
// and quantity, opposite direction, linked back via ReversalOfMovementID.
func (m *Movement) Compensation(at time.Time) Movement {
	original := m.ID
	comp := Movement{
		ID:                   id.New(),
		TransactionDetailID:  m.TransactionDetailID,
		CompanyID:            m.CompanyID,
		Direction:            m.Direction.Opposite(),
		Quantity:             m.Quantity,
		ProductID:            m.ProductID,
		LocationID:           m.LocationID,
		BatchNumber:          m.BatchNumber,
		SerialNumber:         m.SerialNumber,
		OccurredAt:           at,
		ReversalOfMovementID: &original,
		CreatedAt:            time.Now().UTC(),
	}
	return comp
}

// IsCompensation reports whether the movement offsets another one.
func (m *Movement) IsCompensation() bool {
	return m.ReversalOfMovementID != nil
}

// Batch returns the batch number or empty string.
func (m *Movement) Batch() string {
	if m.BatchNumber != nil {
		return *m.BatchNumber
	}
	return ""
}

// Serial returns the serial number or empty string.
func (m *Movement) Serial() string {
	if m.SerialNumber != nil {
		return *m.SerialNumber
	}
	return ""
}
