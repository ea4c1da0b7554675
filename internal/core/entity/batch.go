package entity

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// TrackingMode describes how a product's units are identified.
type TrackingMode string

const (
	// TrackingNone - product moves without batch or serial identifiers
	TrackingNone TrackingMode = "none"
	// TrackingBatch - product moves in identified batches (lots)
	TrackingBatch TrackingMode = "batch"
	// TrackingSerial - each unit carries a unique serial number
	TrackingSerial TrackingMode = "serial"
)

// IsValid reports whether the mode is one of the known values.
func (m TrackingMode) IsValid() bool {
	switch m {
	case TrackingNone, TrackingBatch, TrackingSerial:
		return true
	}
	return false
}

// AllocationPolicy orders batches during multi-batch OUT allocation.
// Per-product configuration, never a hardcoded default.
type AllocationPolicy string

const (
	// AllocationFIFO consumes batches oldest receipt first
	AllocationFIFO AllocationPolicy = "fifo"
	// AllocationFEFO consumes batches nearest expiry first
	AllocationFEFO AllocationPolicy = "fefo"
)

// IsValid reports whether the policy is one of the known values.
func (p AllocationPolicy) IsValid() bool {
	return p == AllocationFIFO || p == AllocationFEFO
}

// ProductTracking is the per-product ledger configuration: how units are
// identified and in which order batches are consumed. Product master data
// stays with its owning module; this row holds only what allocation needs.
type ProductTracking struct {
	CompanyID  string           `db:"company_id" json:"companyId"`
	ProductID  id.ID            `db:"product_id" json:"productId"`
	Mode       TrackingMode     `db:"mode" json:"mode"`
	Allocation AllocationPolicy `db:"allocation" json:"allocation"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updatedAt"`
}

// IsTracked reports whether movements require a batch or serial identifier.
func (p ProductTracking) IsTracked() bool {
	return p.Mode == TrackingBatch || p.Mode == TrackingSerial
}

// StockBatch is one registry row per (product, location, batch number).
// Quantities are never stored here; remaining stock is always derived by
// replaying the movement ledger scoped to the batch. The row carries the
// dates allocation ordering needs and serves as the lock target that
// serializes concurrent OUT allocations for its scope.
type StockBatch struct {
	ID          id.ID      `db:"id" json:"id"`
	CompanyID   string     `db:"company_id" json:"companyId"`
	ProductID   id.ID      `db:"product_id" json:"productId"`
	LocationID  id.ID      `db:"location_id" json:"locationId"`
	BatchNumber string     `db:"batch_number" json:"batchNumber"`
	ReceivedAt  time.Time  `db:"received_at" json:"receivedAt"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// NewStockBatch creates a batch registry row.
func NewStockBatch(companyID string, productID, locationID id.ID, batchNumber string, receivedAt time.Time) StockBatch {
	return StockBatch{
		ID:          id.New(),
		CompanyID:   companyID,
		ProductID:   productID,
		LocationID:  locationID,
		BatchNumber: batchNumber,
		ReceivedAt:  receivedAt,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks batch invariants.
func (b *StockBatch) Validate(ctx context.Context) error {
	if b.CompanyID == "" {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if b.BatchNumber == "" {
		return apperror.NewValidation("batch number is required").
			WithDetail("field", "batchNumber")
	}
	if id.IsNil(b.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if id.IsNil(b.LocationID) {
		return apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}
	if b.ReceivedAt.IsZero() {
		return apperror.NewValidation("received date is required").
			WithDetail("field", "receivedAt")
	}
	return nil
}

// BatchAvailability pairs a batch with its ledger-derived remaining stock.
type BatchAvailability struct {
	Batch     StockBatch
	Remaining types.Quantity
}
