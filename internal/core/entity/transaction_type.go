// Package entity provides the ledger's domain entities.
package entity

// Direction is the stock effect of a movement.
type Direction string

const (
	// DirectionIn increases stock on hand
	DirectionIn Direction = "IN"
	// DirectionOut decreases stock on hand
	DirectionOut Direction = "OUT"
)

// Opposite returns the reversing direction.
func (d Direction) Opposite() Direction {
	if d == DirectionIn {
		return DirectionOut
	}
	return DirectionIn
}

// TransactionType is the closed enumeration of business activities that
// produce detail lines. Direction is never encoded in quantity sign; it
// comes only from this type's static mapping.
type TransactionType string

const (
	TxSale                  TransactionType = "Sale"
	TxRefund                TransactionType = "Refund"
	TxGoodsReceived         TransactionType = "GoodsReceived"
	TxReturnToSupplier      TransactionType = "ReturnToSupplier"
	TxTransferOut           TransactionType = "TransferOut"
	TxTransferIn            TransactionType = "TransferIn"
	TxProductionConsumption TransactionType = "ProductionConsumption"
	TxProductionOutput      TransactionType = "ProductionOutput"
	TxAdjustmentIncrease    TransactionType = "AdjustmentIncrease"
	TxAdjustmentDecrease    TransactionType = "AdjustmentDecrease"
	TxStockCountVariance    TransactionType = "StockCountVariance"
	TxDestruction           TransactionType = "Destruction"
	TxSampleOut             TransactionType = "SampleOut"
	TxPromotionOut          TransactionType = "PromotionOut"
	TxQuarantineIn          TransactionType = "QuarantineIn"
	TxQuarantineOut         TransactionType = "QuarantineOut"
)

// directionByType is the static TransactionType -> direction table.
// StockCountVariance records shrinkage found during counts; surpluses
// are posted as AdjustmentIncrease.
var directionByType = map[TransactionType]Direction{
	TxSale:                  DirectionOut,
	TxRefund:                DirectionIn,
	TxGoodsReceived:         DirectionIn,
	TxReturnToSupplier:      DirectionOut,
	TxTransferOut:           DirectionOut,
	TxTransferIn:            DirectionIn,
	TxProductionConsumption: DirectionOut,
	TxProductionOutput:      DirectionIn,
	TxAdjustmentIncrease:    DirectionIn,
	TxAdjustmentDecrease:    DirectionOut,
	TxStockCountVariance:    DirectionOut,
	TxDestruction:           DirectionOut,
	TxSampleOut:             DirectionOut,
	TxPromotionOut:          DirectionOut,
	TxQuarantineIn:          DirectionIn,
	TxQuarantineOut:         DirectionOut,
}

// Direction resolves the stock direction for the type.
// The second return is false for unmapped types.
func (t TransactionType) Direction() (Direction, bool) {
	d, ok := directionByType[t]
	return d, ok
}

// IsValid reports whether the type has a direction mapping.
func (t TransactionType) IsValid() bool {
	_, ok := directionByType[t]
	return ok
}

// AllTransactionTypes returns every mapped type. Order is unspecified.
func AllTransactionTypes() []TransactionType {
	types := make([]TransactionType, 0, len(directionByType))
	for t := range directionByType {
		types = append(types, t)
	}
	return types
}
