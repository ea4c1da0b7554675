package entity

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// TransactionDetail is one line of a finalized business activity.
//
// The header record (invoice, transfer order, production run, ...) lives in
// the owning module's store; the ledger never reads it. (HeaderID,
// TransactionType) together form an opaque discriminated reference to it.
// Details are written once and never mutated.
type TransactionDetail struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// CompanyID scopes the detail to a company
	CompanyID string `db:"company_id" json:"companyId"`

	// HeaderID is the externally owned header key, opaque to the ledger
	HeaderID string `db:"header_id" json:"headerId"`

	// TransactionType discriminates which module owns the header
	TransactionType TransactionType `db:"transaction_type" json:"transactionType"`

	ProductID  id.ID `db:"product_id" json:"productId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	// Quantity is always a positive magnitude; direction comes from the
	// transaction type mapping, never from sign
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Pricing fields are informational; the ledger ignores them
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	LineTotal types.Money `db:"line_total" json:"lineTotal"`
	TaxAmount types.Money `db:"tax_amount" json:"taxAmount"`

	// BatchNumber/SerialNumber are required when the product is tracked
	BatchNumber  *string `db:"batch_number" json:"batchNumber,omitempty"`
	SerialNumber *string `db:"serial_number" json:"serialNumber,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewTransactionDetail creates a detail line with generated ID.
func NewTransactionDetail(companyID, headerID string, txType TransactionType, productID, locationID id.ID, quantity types.Quantity) *TransactionDetail {
	return &TransactionDetail{
		ID:              id.New(),
		CompanyID:       companyID,
		HeaderID:        headerID,
		TransactionType: txType,
		ProductID:       productID,
		LocationID:      locationID,
		Quantity:        quantity,
		CreatedAt:       time.Now().UTC(),
	}
}

// Validate checks detail invariants without database access.
func (d *TransactionDetail) Validate(ctx context.Context) error {
	if d.CompanyID == "" {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}

	if d.HeaderID == "" {
		return apperror.NewValidation("header reference is required").
			WithDetail("field", "headerId")
	}

	if !d.TransactionType.IsValid() {
		return apperror.NewUnknownTransactionType(string(d.TransactionType))
	}

	if id.IsNil(d.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	if id.IsNil(d.LocationID) {
		return apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}

	if !d.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}

	return nil
}

// Batch returns the batch number or empty string.
func (d *TransactionDetail) Batch() string {
	if d.BatchNumber != nil {
		return *d.BatchNumber
	}
	return ""
}

// Serial returns the serial number or empty string.
func (d *TransactionDetail) Serial() string {
	if d.SerialNumber != nil {
		return *d.SerialNumber
	}
	return ""
}
