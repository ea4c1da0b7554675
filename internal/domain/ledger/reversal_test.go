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

func TestReverse_NetZero(t *testing.T) {
	svc, store, _ := newTestService(nil)
	ctx := context.Background()
	product, location := id.New(), id.New()
	base := time.Now().UTC()

	receipt := testDetail(entity.TxGoodsReceived, product, location, 10, base)
	originals, err := svc.Generate(ctx, receipt)
	require.NoError(t, err)

	compensations, err := svc.Reverse(ctx, receipt.ID, "wrong quantity keyed")
	require.NoError(t, err)
	require.Len(t, compensations, 1)

	comp := compensations[0]
	assert.Equal(t, entity.DirectionOut, comp.Direction)
	assert.Equal(t, qty(10), comp.Quantity)
	require.NotNil(t, comp.ReversalOfMovementID)
	assert.Equal(t, originals[0].ID, *comp.ReversalOfMovementID)

	// Originals keep their quantity and direction; only the marker changes.
	all, err := store.GetByDetailID(ctx, receipt.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].IsReversed)
	assert.Equal(t, entity.DirectionIn, all[0].Direction)
	assert.Equal(t, qty(10), all[0].Quantity)

	soh, err := svc.ComputeSOH(ctx, Scope{CompanyID: testCompany, ProductID: product}, time.Time{})
	require.NoError(t, err)
	assert.True(t, soh.IsZero())
}

func TestReverse_Idempotent(t *testing.T) {
	svc, store, _ := newTestService(nil)
	ctx := context.Background()

	receipt := testDetail(entity.TxGoodsReceived, id.New(), id.New(), 10, time.Now().UTC())
	_, err := svc.Generate(ctx, receipt)
	require.NoError(t, err)

	first, err := svc.Reverse(ctx, receipt.ID, "first")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.Reverse(ctx, receipt.ID, "retry")
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, first[0].ID, second[0].ID, "replay must return the existing compensations")
	assert.Len(t, store.movements, 2, "replay must not append")
}

func TestReverse_NotFound(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Reverse(ctx, id.New(), "nothing there")

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeReversalNotFound))
}

func TestReverse_MultiBatchDetail(t *testing.T) {
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

	for i, batch := range []string{"B1", "B2"} {
		d := testDetail(entity.TxGoodsReceived, product, location, 10, base.Add(time.Duration(i)*time.Hour))
		d.BatchNumber = strptr(batch)
		_, err := svc.Generate(ctx, d)
		require.NoError(t, err)
	}

	sale := testDetail(entity.TxSale, product, location, 15, base.Add(2*time.Hour))
	sale.BatchNumber = strptr("B1")
	originals, err := svc.Generate(ctx, sale)
	require.NoError(t, err)
	require.Len(t, originals, 2)

	compensations, err := svc.Reverse(ctx, sale.ID, "order cancelled")
	require.NoError(t, err)
	require.Len(t, compensations, 2, "every movement of the detail gets its own compensation")

	// Stock returns to the exact per-batch levels before the sale.
	for _, batch := range []string{"B1", "B2"} {
		b := batch
		soh, err := svc.ComputeSOH(ctx, Scope{CompanyID: testCompany, ProductID: product, BatchNumber: &b}, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, qty(10), soh, "batch %s", batch)
	}
}

func TestReverse_AuditRecorded(t *testing.T) {
	svc, _, audit := newTestService(nil)
	ctx := context.Background()

	receipt := testDetail(entity.TxGoodsReceived, id.New(), id.New(), 1, time.Now().UTC())
	_, err := svc.Generate(ctx, receipt)
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, receipt.ID, "test")
	require.NoError(t, err)

	assert.Equal(t, []string{"generate", "reverse"}, audit.actions)
}
