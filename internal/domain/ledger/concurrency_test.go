package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// scopeLockStore gives LockScope real mutual exclusion per scope, the
// way pg_advisory_xact_lock serializes writers in the SQL store.
type scopeLockStore struct {
	*memStore
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func newScopeLockStore() *scopeLockStore {
	return &scopeLockStore{
		memStore: newMemStore(),
		locks:    make(map[string]*sync.Mutex),
	}
}

type heldScopeLocks struct {
	mu   sync.Mutex
	held []*sync.Mutex
}

type heldScopeLocksKey struct{}

func (s *scopeLockStore) LockScope(ctx context.Context, companyID string, productID, locationID id.ID) error {
	key := companyID + ":" + productID.String() + ":" + locationID.String()

	s.lockMu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.lockMu.Unlock()

	held, ok := ctx.Value(heldScopeLocksKey{}).(*heldScopeLocks)
	if !ok {
		return errors.New("scope lock taken outside a transaction")
	}

	m.Lock()
	held.mu.Lock()
	held.held = append(held.held, m)
	held.mu.Unlock()
	return nil
}

// scopeLockTxManager releases scope locks when the outermost callback
// returns, matching advisory xact locks releasing on commit or rollback.
type scopeLockTxManager struct{}

func (scopeLockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(heldScopeLocksKey{}).(*heldScopeLocks); ok {
		return fn(ctx)
	}
	held := &heldScopeLocks{}
	ctx = context.WithValue(ctx, heldScopeLocksKey{}, held)
	defer func() {
		held.mu.Lock()
		for i := len(held.held) - 1; i >= 0; i-- {
			held.held[i].Unlock()
		}
		held.held = nil
		held.mu.Unlock()
	}()
	return fn(ctx)
}

func TestGenerate_ConcurrentStrictSales(t *testing.T) {
	store := newScopeLockStore()
	audit := &memAudit{}
	svc := NewService(store, store, store, store, StrictStockPolicy{}, audit, scopeLockTxManager{})
	ctx := context.Background()
	product, location := id.New(), id.New()
	base := time.Now().UTC().Add(-time.Hour)

	receipt := testDetail(entity.TxGoodsReceived, product, location, 100, base)
	_, err := svc.Generate(ctx, receipt)
	require.NoError(t, err)

	// Two sales of 60 race against a stock of 100. Whichever reaches
	// the scope lock second must re-read the ledger and fail.
	results := make(chan error, 2)
	var gate sync.WaitGroup
	gate.Add(1)
	for i := 0; i < 2; i++ {
		sale := testDetail(entity.TxSale, product, location, 60, time.Now().UTC())
		go func(d *entity.TransactionDetail) {
			gate.Wait()
			_, err := svc.Generate(ctx, d)
			results <- err
		}(sale)
	}
	gate.Done()

	var failures int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			failures++
			assert.True(t, apperror.IsInsufficientStock(err))
		}
	}
	assert.Equal(t, 1, failures, "exactly one of the racing sales must fail")

	soh, err := svc.ComputeSOH(ctx, Scope{CompanyID: testCompany, ProductID: product}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, qty(40), soh)
	assert.Len(t, store.movements, 2)
}
