package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

const testCompany = "acme"

func testDetail(txType entity.TransactionType, productID, locationID id.ID, quantity int64, at time.Time) *entity.TransactionDetail {
	d := entity.NewTransactionDetail(testCompany, "hdr-1", txType, productID, locationID, qty(quantity))
	d.CreatedAt = at
	return d
}

func TestGenerate_DirectionFromType(t *testing.T) {
	product := id.New()
	location := id.New()

	tests := []struct {
		txType entity.TransactionType
		want   entity.Direction
	}{
		{entity.TxGoodsReceived, entity.DirectionIn},
		{entity.TxRefund, entity.DirectionIn},
		{entity.TxTransferIn, entity.DirectionIn},
		{entity.TxProductionOutput, entity.DirectionIn},
		{entity.TxAdjustmentIncrease, entity.DirectionIn},
		{entity.TxQuarantineIn, entity.DirectionIn},
		{entity.TxSale, entity.DirectionOut},
		{entity.TxReturnToSupplier, entity.DirectionOut},
		{entity.TxTransferOut, entity.DirectionOut},
		{entity.TxProductionConsumption, entity.DirectionOut},
		{entity.TxAdjustmentDecrease, entity.DirectionOut},
		{entity.TxDestruction, entity.DirectionOut},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			svc, _, _ := newTestService(PermissiveStockPolicy{})
			ctx := context.Background()

			detail := testDetail(tt.txType, product, location, 5, time.Now().UTC())
			movements, err := svc.Generate(ctx, detail)
			require.NoError(t, err)
			require.Len(t, movements, 1)

			assert.Equal(t, tt.want, movements[0].Direction)
			assert.Equal(t, qty(5), movements[0].Quantity)
			assert.Equal(t, detail.ID, movements[0].TransactionDetailID)
		})
	}
}

func TestGenerate_UnknownTransactionType(t *testing.T) {
	svc, store, _ := newTestService(nil)
	ctx := context.Background()

	detail := testDetail("TeleportOut", id.New(), id.New(), 1, time.Now().UTC())
	_, err := svc.Generate(ctx, detail)

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnknownTransactionType))
	assert.Empty(t, store.movements, "nothing may be written on a failed validation")
}

func TestGenerate_Idempotent(t *testing.T) {
	svc, store, _ := newTestService(nil)
	ctx := context.Background()
	product, location := id.New(), id.New()

	detail := testDetail(entity.TxGoodsReceived, product, location, 10, time.Now().UTC())

	first, err := svc.Generate(ctx, detail)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.Generate(ctx, detail)
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, first[0].ID, second[0].ID, "redelivery must return the original set")
	assert.Len(t, store.movements, 1, "redelivery must not append")
}

func TestGenerate_IdempotentAfterReversal(t *testing.T) {
	svc, store, _ := newTestService(nil)
	ctx := context.Background()

	detail := testDetail(entity.TxGoodsReceived, id.New(), id.New(), 10, time.Now().UTC())
	first, err := svc.Generate(ctx, detail)
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, detail.ID, "entry error")
	require.NoError(t, err)

	// A redelivered detail after reversal still resolves to the original
	// movements; compensations never count as "no movements yet".
	replayed, err := svc.Generate(ctx, detail)
	require.NoError(t, err)
	require.Len(t, replayed, 1)
	assert.Equal(t, first[0].ID, replayed[0].ID)
	assert.Len(t, store.movements, 2, "original plus compensation only")
}

func TestGenerate_MissingBatchNumber(t *testing.T) {
	svc, store, _ := newTestService(nil)
	ctx := context.Background()
	product, location := id.New(), id.New()

	require.NoError(t, store.Set(ctx, entity.ProductTracking{
		CompanyID:  testCompany,
		ProductID:  product,
		Mode:       entity.TrackingBatch,
		Allocation: entity.AllocationFIFO,
	}))

	detail := testDetail(entity.TxGoodsReceived, product, location, 10, time.Now().UTC())
	_, err := svc.Generate(ctx, detail)

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingBatchNumber))
	assert.Empty(t, store.movements)
}

func TestGenerate_InsufficientStock_Strict(t *testing.T) {
	svc, store, _ := newTestService(StrictStockPolicy{})
	ctx := context.Background()
	product, location := id.New(), id.New()
	base := time.Now().UTC()

	receipt := testDetail(entity.TxGoodsReceived, product, location, 3, base)
	_, err := svc.Generate(ctx, receipt)
	require.NoError(t, err)

	sale := testDetail(entity.TxSale, product, location, 5, base.Add(time.Minute))
	_, err = svc.Generate(ctx, sale)

	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Len(t, store.movements, 1, "the failed sale must write nothing")

	soh, err := svc.ComputeSOH(ctx, Scope{CompanyID: testCompany, ProductID: product}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, qty(3), soh)
}

func TestGenerate_NegativeStock_Permissive(t *testing.T) {
	svc, _, _ := newTestService(StrictStockPolicy{})
	ctx := context.Background()
	product, location := id.New(), id.New()

	sale := testDetail(entity.TxSale, product, location, 5, time.Now().UTC())
	movements, err := svc.GenerateWithPolicy(ctx, sale, PermissiveStockPolicy{})
	require.NoError(t, err)
	require.Len(t, movements, 1)

	soh, err := svc.ComputeSOH(ctx, Scope{CompanyID: testCompany, ProductID: product}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, qty(-5), soh)
}

func TestGenerate_BatchAllocation_FIFO(t *testing.T) {
	svc, _, _ := newTestService(StrictStockPolicy{})
	ctx := context.Background()
	product, location := id.New(), id.New()
	base := time.Now().UTC().Add(-3 * time.Hour)

	require.NoError(t, svc.SetTracking(ctx, entity.ProductTracking{
		CompanyID:  testCompany,
		ProductID:  product,
		Mode:       entity.TrackingBatch,
		Allocation: entity.AllocationFIFO,
	}))

	// Two receipts: B1 first with 10, B2 later with 20.
	r1 := testDetail(entity.TxGoodsReceived, product, location, 10, base)
	r1.BatchNumber = strptr("B1")
	_, err := svc.Generate(ctx, r1)
	require.NoError(t, err)

	r2 := testDetail(entity.TxGoodsReceived, product, location, 20, base.Add(time.Hour))
	r2.BatchNumber = strptr("B2")
	_, err = svc.Generate(ctx, r2)
	require.NoError(t, err)

	// Selling 15 from B1 spans into B2: 10 from B1, 5 from B2.
	sale := testDetail(entity.TxSale, product, location, 15, base.Add(2*time.Hour))
	sale.BatchNumber = strptr("B1")
	movements, err := svc.Generate(ctx, sale)
	require.NoError(t, err)
	require.Len(t, movements, 2)

	assert.Equal(t, "B1", movements[0].Batch())
	assert.Equal(t, qty(10), movements[0].Quantity)
	assert.Equal(t, "B2", movements[1].Batch())
	assert.Equal(t, qty(5), movements[1].Quantity)

	b1 := "B1"
	soh, err := svc.ComputeSOH(ctx, Scope{CompanyID: testCompany, ProductID: product, BatchNumber: &b1}, time.Time{})
	require.NoError(t, err)
	assert.True(t, soh.IsZero(), "B1 must be exhausted")
}

func TestGenerate_BatchAllocation_FEFO(t *testing.T) {
	svc, store, _ := newTestService(StrictStockPolicy{})
	ctx := context.Background()
	product, location := id.New(), id.New()
	base := time.Now().UTC()

	require.NoError(t, svc.SetTracking(ctx, entity.ProductTracking{
		CompanyID:  testCompany,
		ProductID:  product,
		Mode:       entity.TrackingBatch,
		Allocation: entity.AllocationFEFO,
	}))

	// EARLY receives last but expires soonest; once the line's own batch
	// is drained, FEFO picks EARLY over LATE despite receipt order.
	receipts := []struct {
		batch string
		units int64
	}{
		{"PIN", 2},
		{"LATE", 10},
		{"EARLY", 10},
	}
	for i, r := range receipts {
		d := testDetail(entity.TxGoodsReceived, product, location, r.units, base.Add(time.Duration(i)*time.Hour))
		d.BatchNumber = strptr(r.batch)
		_, err := svc.Generate(ctx, d)
		require.NoError(t, err)
	}

	require.NoError(t, svc.SetBatchExpiry(ctx, testCompany, product, location, "LATE", base.AddDate(0, 6, 0)))
	require.NoError(t, svc.SetBatchExpiry(ctx, testCompany, product, location, "EARLY", base.AddDate(0, 1, 0)))

	sale := testDetail(entity.TxSale, product, location, 8, base.Add(4*time.Hour))
	sale.BatchNumber = strptr("PIN")
	movements, err := svc.Generate(ctx, sale)
	require.NoError(t, err)
	require.Len(t, movements, 2)

	assert.Equal(t, "PIN", movements[0].Batch())
	assert.Equal(t, qty(2), movements[0].Quantity)
	assert.Equal(t, "EARLY", movements[1].Batch())
	assert.Equal(t, qty(6), movements[1].Quantity)
	assert.Len(t, store.batches, 3)
}

func TestGenerate_PinnedBatchUnregistered(t *testing.T) {
	svc, _, _ := newTestService(StrictStockPolicy{})
	ctx := context.Background()
	product, location := id.New(), id.New()

	require.NoError(t, svc.SetTracking(ctx, entity.ProductTracking{
		CompanyID:  testCompany,
		ProductID:  product,
		Mode:       entity.TrackingBatch,
		Allocation: entity.AllocationFIFO,
	}))

	sale := testDetail(entity.TxSale, product, location, 1, time.Now().UTC())
	sale.BatchNumber = strptr("NOPE")
	_, err := svc.Generate(ctx, sale)

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingBatchNumber))
}

func TestGenerate_BatchShortfall_Permissive(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()
	product, location := id.New(), id.New()
	base := time.Now().UTC().Add(-3 * time.Hour)

	require.NoError(t, svc.SetTracking(ctx, entity.ProductTracking{
		CompanyID:  testCompany,
		ProductID:  product,
		Mode:       entity.TrackingBatch,
		Allocation: entity.AllocationFIFO,
	}))

	receipt := testDetail(entity.TxGoodsReceived, product, location, 4, base)
	receipt.BatchNumber = strptr("B1")
	_, err := svc.Generate(ctx, receipt)
	require.NoError(t, err)

	sale := testDetail(entity.TxSale, product, location, 10, base.Add(time.Minute))
	sale.BatchNumber = strptr("B1")
	movements, err := svc.GenerateWithPolicy(ctx, sale, PermissiveStockPolicy{})
	require.NoError(t, err)
	require.Len(t, movements, 1, "shortfall merges onto the line's own batch")
	assert.Equal(t, qty(10), movements[0].Quantity)

	b1 := "B1"
	soh, err := svc.ComputeSOH(ctx, Scope{CompanyID: testCompany, ProductID: product, BatchNumber: &b1}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, qty(-6), soh)
}

func TestGenerate_SerialTracked(t *testing.T) {
	svc, _, _ := newTestService(StrictStockPolicy{})
	ctx := context.Background()
	product, location := id.New(), id.New()
	base := time.Now().UTC()

	require.NoError(t, svc.SetTracking(ctx, entity.ProductTracking{
		CompanyID:  testCompany,
		ProductID:  product,
		Mode:       entity.TrackingSerial,
		Allocation: entity.AllocationFIFO,
	}))

	receipt := testDetail(entity.TxGoodsReceived, product, location, 1, base)
	receipt.SerialNumber = strptr("SN-001")
	_, err := svc.Generate(ctx, receipt)
	require.NoError(t, err)

	sale := testDetail(entity.TxSale, product, location, 1, base.Add(time.Minute))
	sale.SerialNumber = strptr("SN-001")
	movements, err := svc.Generate(ctx, sale)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "SN-001", movements[0].Serial())

	// The unit is gone; selling the same serial again fails strict.
	again := testDetail(entity.TxSale, product, location, 1, base.Add(2*time.Minute))
	again.SerialNumber = strptr("SN-001")
	_, err = svc.Generate(ctx, again)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestGenerate_AuditRecorded(t *testing.T) {
	svc, _, audit := newTestService(nil)
	ctx := context.Background()

	detail := testDetail(entity.TxGoodsReceived, id.New(), id.New(), 1, time.Now().UTC())
	_, err := svc.Generate(ctx, detail)
	require.NoError(t, err)

	assert.Equal(t, []string{"generate"}, audit.actions)
}

func TestGenerate_BackdatedSale_Strict(t *testing.T) {
	svc, store, _ := newTestService(StrictStockPolicy{})
	ctx := context.Background()
	product, location := id.New(), id.New()
	base := time.Now().UTC().Add(-3 * time.Hour)

	receipt := testDetail(entity.TxGoodsReceived, product, location, 100, base)
	_, err := svc.Generate(ctx, receipt)
	require.NoError(t, err)

	sale := testDetail(entity.TxSale, product, location, 100, base.Add(2*time.Hour))
	_, err = svc.Generate(ctx, sale)
	require.NoError(t, err)

	// A line dated between the receipt and the sale still sees the
	// whole ledger: sufficiency guards current stock, not the stock at
	// the business timestamp.
	backdated := testDetail(entity.TxSale, product, location, 100, base.Add(time.Hour))
	_, err = svc.Generate(ctx, backdated)

	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Len(t, store.movements, 2, "the backdated sale must write nothing")

	soh, err := svc.ComputeSOH(ctx, Scope{CompanyID: testCompany, ProductID: product}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, qty(0), soh)
}

func TestGenerate_BackdatedSerialSale_Strict(t *testing.T) {
	svc, store, _ := newTestService(StrictStockPolicy{})
	ctx := context.Background()
	product, location := id.New(), id.New()
	base := time.Now().UTC().Add(-3 * time.Hour)

	require.NoError(t, store.Set(ctx, entity.ProductTracking{
		CompanyID:  testCompany,
		ProductID:  product,
		Mode:       entity.TrackingSerial,
		Allocation: entity.AllocationFIFO,
	}))

	receipt := testDetail(entity.TxGoodsReceived, product, location, 1, base)
	receipt.SerialNumber = strptr("SN-100")
	_, err := svc.Generate(ctx, receipt)
	require.NoError(t, err)

	sale := testDetail(entity.TxSale, product, location, 1, base.Add(2*time.Hour))
	sale.SerialNumber = strptr("SN-100")
	_, err = svc.Generate(ctx, sale)
	require.NoError(t, err)

	backdated := testDetail(entity.TxSale, product, location, 1, base.Add(time.Hour))
	backdated.SerialNumber = strptr("SN-100")
	_, err = svc.Generate(ctx, backdated)

	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Len(t, store.movements, 2)
}

func TestGenerate_SerialOnlyOnBatchTracked(t *testing.T) {
	svc, store, _ := newTestService(nil)
	ctx := context.Background()
	product, location := id.New(), id.New()

	require.NoError(t, store.Set(ctx, entity.ProductTracking{
		CompanyID:  testCompany,
		ProductID:  product,
		Mode:       entity.TrackingBatch,
		Allocation: entity.AllocationFIFO,
	}))

	// A serial cannot name a batch; batch-tracked lines need the batch.
	detail := testDetail(entity.TxGoodsReceived, product, location, 10, time.Now().UTC())
	detail.SerialNumber = strptr("SN-77")
	_, err := svc.Generate(ctx, detail)

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingBatchNumber))
	assert.Empty(t, store.movements)
}

func TestGenerate_BatchAllocationCarriesSerial(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()
	product, location := id.New(), id.New()
	base := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, svc.SetTracking(ctx, entity.ProductTracking{
		CompanyID:  testCompany,
		ProductID:  product,
		Mode:       entity.TrackingBatch,
		Allocation: entity.AllocationFIFO,
	}))

	receipt := testDetail(entity.TxGoodsReceived, product, location, 10, base)
	receipt.BatchNumber = strptr("B1")
	_, err := svc.Generate(ctx, receipt)
	require.NoError(t, err)

	sale := testDetail(entity.TxSale, product, location, 4, base.Add(time.Minute))
	sale.BatchNumber = strptr("B1")
	sale.SerialNumber = strptr("SN-9")
	movements, err := svc.Generate(ctx, sale)
	require.NoError(t, err)

	require.Len(t, movements, 1)
	assert.Equal(t, "B1", movements[0].Batch())
	assert.Equal(t, "SN-9", movements[0].Serial(), "the line's serial stays traceable on allocated movements")
}
