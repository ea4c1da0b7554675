package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/types"
)

func avail(pairs ...any) []entity.BatchAvailability {
	out := make([]entity.BatchAvailability, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, entity.BatchAvailability{
			Batch:     entity.StockBatch{BatchNumber: pairs[i].(string)},
			Remaining: qty(int64(pairs[i+1].(int))),
		})
	}
	return out
}

func TestAllocateAcrossBatches(t *testing.T) {
	tests := []struct {
		name          string
		requested     int64
		available     []entity.BatchAvailability
		wantAllocs    []batchAllocation
		wantShortfall int64
	}{
		{
			name:       "exact fit in one batch",
			requested:  10,
			available:  avail("B1", 10, "B2", 5),
			wantAllocs: []batchAllocation{{"B1", qty(10)}},
		},
		{
			name:       "spans two batches",
			requested:  15,
			available:  avail("B1", 10, "B2", 20),
			wantAllocs: []batchAllocation{{"B1", qty(10)}, {"B2", qty(5)}},
		},
		{
			name:       "skips exhausted batches",
			requested:  5,
			available:  avail("B1", 0, "B2", 8),
			wantAllocs: []batchAllocation{{"B2", qty(5)}},
		},
		{
			name:          "shortfall when everything drained",
			requested:     25,
			available:     avail("B1", 10, "B2", 5),
			wantAllocs:    []batchAllocation{{"B1", qty(10)}, {"B2", qty(5)}},
			wantShortfall: 10,
		},
		{
			name:          "no batches at all",
			requested:     3,
			available:     nil,
			wantAllocs:    []batchAllocation{},
			wantShortfall: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocs, shortfall := allocateAcrossBatches(qty(tt.requested), tt.available)
			assert.Equal(t, tt.wantAllocs, allocs)
			assert.Equal(t, qty(tt.wantShortfall), shortfall)
		})
	}
}

func TestPinBatchFirst(t *testing.T) {
	available := avail("B1", 10, "B2", 5, "B3", 7)

	reordered := pinBatchFirst(available, "B2")
	assert.Equal(t, "B2", reordered[0].Batch.BatchNumber)
	assert.Equal(t, "B1", reordered[1].Batch.BatchNumber)
	assert.Equal(t, "B3", reordered[2].Batch.BatchNumber)

	// Unknown batch gets a zero-remaining placeholder at the front.
	withPlaceholder := pinBatchFirst(available, "B9")
	assert.Len(t, withPlaceholder, 4)
	assert.Equal(t, "B9", withPlaceholder[0].Batch.BatchNumber)
	assert.True(t, withPlaceholder[0].Remaining.IsZero())
}

func TestMergeShortfall(t *testing.T) {
	allocs := []batchAllocation{{"B1", qty(4)}}

	merged := mergeShortfall(allocs, "B1", qty(6))
	assert.Equal(t, []batchAllocation{{"B1", qty(10)}}, merged)

	merged = mergeShortfall([]batchAllocation{{"B1", qty(4)}}, "B2", qty(6))
	assert.Equal(t, []batchAllocation{{"B1", qty(4)}, {"B2", qty(6)}}, merged)

	merged = mergeShortfall(nil, "", qty(6))
	assert.Equal(t, []batchAllocation{{Quantity: qty(6)}}, merged)
}

func TestTotalAvailable(t *testing.T) {
	assert.Equal(t, qty(15), totalAvailable(avail("B1", 10, "B2", 5)))
	assert.Equal(t, types.Quantity(0), totalAvailable(nil))
}
