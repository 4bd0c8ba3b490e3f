package ledger

import (
	"context"
	"sync"

	"printtrace/internal/ledger/models"
	"printtrace/pkg/platform/sentinel"
)

// InMemoryStore keeps the chain in an ordered slice guarded by a RWMutex.
// Suitable for single-node deployments and tests; use PostgresStore for
// durability.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.LedgerRecord
}

// NewInMemoryStore creates an empty in-memory ledger store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record models.LedgerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) Last(_ context.Context) (models.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return models.LedgerRecord{}, sentinel.ErrNotFound
	}
	return s.records[len(s.records)-1], nil
}

func (s *InMemoryStore) List(_ context.Context, offset, limit int64) ([]models.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= int64(len(s.records)) {
		return nil, nil
	}
	end := int64(len(s.records))
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]models.LedgerRecord{}, s.records[offset:end]...), nil
}

func (s *InMemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Tamper overwrites a stored record in place. Test hook for exercising chain
// verification; implemented only by the in-memory store.
func (s *InMemoryStore) Tamper(index int64, mutate func(*models.LedgerRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= 0 && index < int64(len(s.records)) {
		mutate(&s.records[index])
	}
}
