package dto

import (
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// --- Transaction details ---

// RegisterDetailRequest creates a transaction detail line and generates
// its ledger movements in one call.
type RegisterDetailRequest struct {
	HeaderID        string         `json:"headerId" binding:"required"`
	TransactionType string         `json:"transactionType" binding:"required"`
	ProductID       string         `json:"productId" binding:"required"`
	LocationID      string         `json:"locationId" binding:"required"`
	Quantity        types.Quantity `json:"quantity" binding:"required"`
	UnitPrice       *types.Money   `json:"unitPrice,omitempty"`
	LineTotal       *types.Money   `json:"lineTotal,omitempty"`
	TaxAmount       *types.Money   `json:"taxAmount,omitempty"`
	BatchNumber     *string        `json:"batchNumber,omitempty"`
	SerialNumber    *string        `json:"serialNumber,omitempty"`

	// OccurredAt is the business timestamp; defaults to now
	OccurredAt *time.Time `json:"occurredAt,omitempty"`

	// NegativeStockPolicy overrides the configured policy for this call:
	// "strict", "permissive", or empty for the configured rules
	NegativeStockPolicy string `json:"negativeStockPolicy,omitempty"`
}

// ToDetail converts the request to a detail entity.
func (r RegisterDetailRequest) ToDetail(companyID string) (*entity.TransactionDetail, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return nil, err
	}
	locationID, err := id.Parse(r.LocationID)
	if err != nil {
		return nil, err
	}

	detail := entity.NewTransactionDetail(
		companyID,
		r.HeaderID,
		entity.TransactionType(r.TransactionType),
		productID,
		locationID,
		r.Quantity,
	)
	detail.BatchNumber = r.BatchNumber
	detail.SerialNumber = r.SerialNumber
	if r.UnitPrice != nil {
		detail.UnitPrice = *r.UnitPrice
	}
	if r.LineTotal != nil {
		detail.LineTotal = *r.LineTotal
	}
	if r.TaxAmount != nil {
		detail.TaxAmount = *r.TaxAmount
	}
	if r.OccurredAt != nil {
		detail.CreatedAt = r.OccurredAt.UTC()
	}
	return detail, nil
}

// DetailResponse is a transaction detail with its movements.
type DetailResponse struct {
	Detail    *entity.TransactionDetail `json:"detail"`
	Movements []MovementResponse        `json:"movements,omitempty"`
}

// ReverseRequest asks for compensating movements for a detail.
type ReverseRequest struct {
	Reason string `json:"reason"`
}

// --- Movements ---

// MovementResponse is one ledger movement.
type MovementResponse struct {
	ID                   string         `json:"id"`
	TransactionDetailID  string         `json:"transactionDetailId"`
	Direction            string         `json:"direction"`
	Quantity             types.Quantity `json:"quantity"`
	ProductID            string         `json:"productId"`
	LocationID           string         `json:"locationId"`
	BatchNumber          *string        `json:"batchNumber,omitempty"`
	SerialNumber         *string        `json:"serialNumber,omitempty"`
	OccurredAt           time.Time      `json:"occurredAt"`
	IsReversed           bool           `json:"isReversed"`
	ReversalOfMovementID *string        `json:"reversalOfMovementId,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
}

// FromMovement converts a movement entity to a response.
func FromMovement(m entity.Movement) MovementResponse {
	resp := MovementResponse{
		ID:                  m.ID.String(),
		TransactionDetailID: m.TransactionDetailID.String(),
		Direction:           string(m.Direction),
		Quantity:            m.Quantity,
		ProductID:           m.ProductID.String(),
		LocationID:          m.LocationID.String(),
		BatchNumber:         m.BatchNumber,
		SerialNumber:        m.SerialNumber,
		OccurredAt:          m.OccurredAt,
		IsReversed:          m.IsReversed,
		CreatedAt:           m.CreatedAt,
	}
	if m.ReversalOfMovementID != nil {
		s := m.ReversalOfMovementID.String()
		resp.ReversalOfMovementID = &s
	}
	return resp
}

// FromMovements converts a movement slice.
func FromMovements(movements []entity.Movement) []MovementResponse {
	out := make([]MovementResponse, len(movements))
	for i, m := range movements {
		out[i] = FromMovement(m)
	}
	return out
}

// MovementListResponse wraps movement history results.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
}

// --- Stock on hand ---

// StockResponse is the replayed stock on hand for a scope.
type StockResponse struct {
	ProductID    string         `json:"productId"`
	LocationID   *string        `json:"locationId,omitempty"`
	BatchNumber  *string        `json:"batchNumber,omitempty"`
	SerialNumber *string        `json:"serialNumber,omitempty"`
	AsOf         time.Time      `json:"asOf"`
	Quantity     types.Quantity `json:"quantity"`
}

// TurnoverResponse is the period roll-up with opening/closing balances.
type TurnoverResponse struct {
	FromDate       time.Time      `json:"fromDate"`
	ToDate         time.Time      `json:"toDate"`
	OpeningBalance types.Quantity `json:"openingBalance"`
	Inbound        types.Quantity `json:"inbound"`
	Outbound       types.Quantity `json:"outbound"`
	ClosingBalance types.Quantity `json:"closingBalance"`
}

// FromTurnover converts the turnover report.
func FromTurnover(t ledger.Turnover, from, to time.Time) TurnoverResponse {
	return TurnoverResponse{
		FromDate:       from,
		ToDate:         to,
		OpeningBalance: t.OpeningBalance,
		Inbound:        t.Inbound,
		Outbound:       t.Outbound,
		ClosingBalance: t.ClosingBalance,
	}
}

// --- Tracking configuration ---

// SetTrackingRequest configures per-product tracking and allocation.
type SetTrackingRequest struct {
	Mode       string `json:"mode" binding:"required"`
	Allocation string `json:"allocation" binding:"required"`
}

// TrackingResponse is the per-product ledger configuration.
type TrackingResponse struct {
	ProductID  string    `json:"productId"`
	Mode       string    `json:"mode"`
	Allocation string    `json:"allocation"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// FromTracking converts a tracking entity.
func FromTracking(t entity.ProductTracking) TrackingResponse {
	return TrackingResponse{
		ProductID:  t.ProductID.String(),
		Mode:       string(t.Mode),
		Allocation: string(t.Allocation),
		UpdatedAt:  t.UpdatedAt,
	}
}

// SetBatchExpiryRequest records the expiry date FEFO orders by.
type SetBatchExpiryRequest struct {
	LocationID string    `json:"locationId" binding:"required"`
	ExpiresAt  time.Time `json:"expiresAt" binding:"required"`
}
