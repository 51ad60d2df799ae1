package inmemory

import (
	"context"
	"sync"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/store"
)

// Store is an in-memory RecordStore. It is safe for concurrent use.
// Data is lost on restart.
type Store struct {
	mu      sync.RWMutex
	records map[string][]domain.FinancialRecord
	opts    store.BatchOptions
}

// NewStore creates an empty store writing with opts.
func NewStore(opts store.BatchOptions) *Store {
	return &Store{
		records: make(map[string][]domain.FinancialRecord),
		opts:    opts,
	}
}

// SaveAll implements store.RecordStore. The owner's previous records are
// dropped before the first batch is written.
func (s *Store) SaveAll(ctx context.Context, owner string, records []domain.FinancialRecord, progress store.ProgressFunc) error {
	owner = store.Owner(owner)

	s.mu.Lock()
	s.records[owner] = make([]domain.FinancialRecord, 0, len(records))
	s.mu.Unlock()

	return store.WriteInBatches(ctx, records, s.opts, func(ctx context.Context, batch []domain.FinancialRecord, _ int) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.records[owner] = append(s.records[owner], batch...)
		return nil
	}, nil, progress)
}

// LoadAll implements store.RecordStore.
func (s *Store) LoadAll(ctx context.Context, owner string) ([]domain.FinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	saved := s.records[store.Owner(owner)]
	out := make([]domain.FinancialRecord, len(saved))
	copy(out, saved)
	return out, nil
}

// Close implements store.RecordStore.
func (s *Store) Close() error {
	return nil
}

var _ store.RecordStore = (*Store)(nil)
