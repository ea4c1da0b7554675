package ledger

import (
	"stockledger/internal/core/entity"
	"stockledger/internal/core/types"
)

// batchAllocation is one (batch, partial quantity) pair produced by
// greedy allocation.
type batchAllocation struct {
	BatchNumber string
	Quantity    types.Quantity
}

// allocateAcrossBatches splits a requested OUT quantity across available
// batches greedily, in the order the repository returned them (receipt
// order for FIFO, expiry order for FEFO). Returns the allocations and
// whatever quantity could not be covered.
func allocateAcrossBatches(requested types.Quantity, available []entity.BatchAvailability) ([]batchAllocation, types.Quantity) {
	allocations := make([]batchAllocation, 0, 1)
	remaining := requested

	for _, ba := range available {
		if remaining.IsZero() {
			break
		}
		if !ba.Remaining.IsPositive() {
			continue
		}

		take := remaining.Min(ba.Remaining)
		allocations = append(allocations, batchAllocation{
			BatchNumber: ba.Batch.BatchNumber,
			Quantity:    take,
		})
		remaining -= take
	}

	return allocations, remaining
}

// totalAvailable sums the remaining quantities of the given batches.
func totalAvailable(available []entity.BatchAvailability) types.Quantity {
	var total types.Quantity
	for _, ba := range available {
		if ba.Remaining.IsPositive() {
			total += ba.Remaining
		}
	}
	return total
}
