package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// memStore is an in-memory backend implementing all ledger repositories.
type memStore struct {
	mu        sync.Mutex
	details   map[id.ID]*entity.TransactionDetail
	movements []entity.Movement
	batches   []entity.StockBatch
	tracking  map[string]entity.ProductTracking
	lockCalls int
}

func newMemStore() *memStore {
	return &memStore{
		details:  make(map[id.ID]*entity.TransactionDetail),
		tracking: make(map[string]entity.ProductTracking),
	}
}

func trackingKey(companyID string, productID id.ID) string {
	return companyID + "/" + productID.String()
}

// DetailRepository

func (s *memStore) Create(ctx context.Context, detail *entity.TransactionDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *detail
	s.details[detail.ID] = &cp
	return nil
}

func (s *memStore) GetByID(ctx context.Context, detailID id.ID) (*entity.TransactionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.details[detailID]
	if !ok {
		return nil, apperror.NewNotFound("transaction detail", detailID)
	}
	cp := *d
	return &cp, nil
}

func (s *memStore) ListByHeader(ctx context.Context, companyID, headerID string, txType entity.TransactionType) ([]entity.TransactionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.TransactionDetail
	for _, d := range s.details {
		if d.CompanyID == companyID && d.HeaderID == headerID && d.TransactionType == txType {
			out = append(out, *d)
		}
	}
	return out, nil
}

// MovementRepository

func (s *memStore) CreateMovements(ctx context.Context, movements []entity.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movements = append(s.movements, movements...)
	return nil
}

func (s *memStore) GetByDetailID(ctx context.Context, detailID id.ID) ([]entity.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Movement
	for _, m := range s.movements {
		if m.TransactionDetailID == detailID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) MarkReversed(ctx context.Context, movementIDs []id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	marked := make(map[id.ID]bool, len(movementIDs))
	for _, mid := range movementIDs {
		marked[mid] = true
	}
	for i := range s.movements {
		if marked[s.movements[i].ID] {
			s.movements[i].IsReversed = true
		}
	}
	return nil
}

func inScope(m *entity.Movement, scope Scope) bool {
	if m.CompanyID != scope.CompanyID || m.ProductID != scope.ProductID {
		return false
	}
	if scope.LocationID != nil && m.LocationID != *scope.LocationID {
		return false
	}
	if scope.BatchNumber != nil && m.Batch() != *scope.BatchNumber {
		return false
	}
	if scope.SerialNumber != nil && m.Serial() != *scope.SerialNumber {
		return false
	}
	return true
}

func (s *memStore) SumInScope(ctx context.Context, scope Scope, asOf time.Time) (types.Quantity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum types.Quantity
	for i := range s.movements {
		m := &s.movements[i]
		if !inScope(m, scope) || m.OccurredAt.After(asOf) {
			continue
		}
		sum += m.SignedQuantity()
	}
	return sum, nil
}

func (s *memStore) TraceLineage(ctx context.Context, companyID, batchOrSerial string) ([]entity.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Movement
	for _, m := range s.movements {
		if m.CompanyID == companyID && (m.Batch() == batchOrSerial || m.Serial() == batchOrSerial) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (s *memStore) History(ctx context.Context, companyID string, productID id.ID, filter MovementFilter) ([]entity.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Movement
	for _, m := range s.movements {
		if m.CompanyID != companyID || m.ProductID != productID {
			continue
		}
		if filter.LocationID != nil && m.LocationID != *filter.LocationID {
			continue
		}
		if filter.Direction != nil && m.Direction != *filter.Direction {
			continue
		}
		if filter.BatchNumber != nil && m.Batch() != *filter.BatchNumber {
			continue
		}
		if filter.FromDate != nil && m.OccurredAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && m.OccurredAt.After(*filter.ToDate) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out, nil
}

func (s *memStore) GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t Turnover
	for i := range s.movements {
		m := &s.movements[i]
		if m.CompanyID != filter.CompanyID {
			continue
		}
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.LocationID != nil && m.LocationID != *filter.LocationID {
			continue
		}
		if m.OccurredAt.Before(filter.FromDate) {
			t.OpeningBalance += m.SignedQuantity()
			continue
		}
		if m.OccurredAt.After(filter.ToDate) {
			continue
		}
		if m.Direction == entity.DirectionIn {
			t.Inbound += m.Quantity
		} else {
			t.Outbound += m.Quantity
		}
	}
	t.ClosingBalance = t.OpeningBalance + t.Inbound - t.Outbound
	return t, nil
}

func (s *memStore) LockScope(ctx context.Context, companyID string, productID, locationID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockCalls++
	return nil
}

// BatchRepository

func (s *memStore) EnsureExists(ctx context.Context, batch entity.StockBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.batches {
		if b.CompanyID == batch.CompanyID && b.ProductID == batch.ProductID &&
			b.LocationID == batch.LocationID && b.BatchNumber == batch.BatchNumber {
			return nil
		}
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *memStore) GetByNumber(ctx context.Context, companyID string, productID, locationID id.ID, batchNumber string) (entity.StockBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.batches {
		if b.CompanyID == companyID && b.ProductID == productID &&
			b.LocationID == locationID && b.BatchNumber == batchNumber {
			return b, nil
		}
	}
	return entity.StockBatch{}, apperror.NewNotFound("batch", batchNumber)
}

func (s *memStore) SetExpiry(ctx context.Context, batchID id.ID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.batches {
		if s.batches[i].ID == batchID {
			exp := expiresAt
			s.batches[i].ExpiresAt = &exp
			return nil
		}
	}
	return apperror.NewNotFound("batch", batchID)
}

func (s *memStore) ListAvailableForUpdate(ctx context.Context, companyID string, productID, locationID id.ID, policy entity.AllocationPolicy) ([]entity.BatchAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.BatchAvailability
	for _, b := range s.batches {
		if b.CompanyID != companyID || b.ProductID != productID || b.LocationID != locationID {
			continue
		}
		var remaining types.Quantity
		for i := range s.movements {
			m := &s.movements[i]
			if m.CompanyID == companyID && m.ProductID == productID &&
				m.LocationID == locationID && m.Batch() == b.BatchNumber {
				remaining += m.SignedQuantity()
			}
		}
		if remaining.IsPositive() {
			out = append(out, entity.BatchAvailability{Batch: b, Remaining: remaining})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if policy == entity.AllocationFEFO {
			ei, ej := out[i].Batch.ExpiresAt, out[j].Batch.ExpiresAt
			switch {
			case ei == nil && ej == nil:
				return out[i].Batch.ReceivedAt.Before(out[j].Batch.ReceivedAt)
			case ei == nil:
				return false
			case ej == nil:
				return true
			default:
				return ei.Before(*ej)
			}
		}
		return out[i].Batch.ReceivedAt.Before(out[j].Batch.ReceivedAt)
	})
	return out, nil
}

// TrackingRepository

func (s *memStore) Get(ctx context.Context, companyID string, productID id.ID) (entity.ProductTracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tracking[trackingKey(companyID, productID)]; ok {
		return t, nil
	}
	return entity.ProductTracking{
		CompanyID:  companyID,
		ProductID:  productID,
		Mode:       entity.TrackingNone,
		Allocation: entity.AllocationFIFO,
	}, nil
}

func (s *memStore) Set(ctx context.Context, tracking entity.ProductTracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking[trackingKey(tracking.CompanyID, tracking.ProductID)] = tracking
	return nil
}

// memTxManager runs the function directly; the store is not transactional.
type memTxManager struct{}

func (memTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memAudit captures audit records.
type memAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *memAudit) Record(ctx context.Context, action string, detailID id.ID, payload any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return nil
}

func newTestService(policy StockPolicy) (*Service, *memStore, *memAudit) {
	store := newMemStore()
	audit := &memAudit{}
	svc := NewService(store, store, store, store, policy, audit, memTxManager{})
	return svc, store, audit
}

func qty(v int64) types.Quantity {
	return types.NewQuantityFromInt(v)
}

func strptr(s string) *string { return &s }
