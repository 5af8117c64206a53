// Package memory is the in-process ProfileStore backend.
//
// It is selected by explicit configuration (APP_STORE_BACKEND=memory) for
// local development and demos, and doubles as the unit-test store. It is
// never substituted for the real backend at runtime; backend choice is
// made once, at construction.
package memory

import (
	"context"
	"sync"

	"github.com/assetcraft/gemledger/internal/repos/profiles"
)

var _ profiles.Store = (*Store)(nil)

type Store struct {
	mu      sync.RWMutex
	records map[string]profiles.Record
}

func New() *Store {
	return &Store{records: make(map[string]profiles.Record)}
}

// Seed installs a record directly, bypassing the ledger. Test/demo setup only.
func (s *Store) Seed(userID string, rec profiles.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = rec
}

func (s *Store) Fetch(_ context.Context, userID string) (profiles.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return profiles.Record{}, profiles.ErrProfileNotFound
	}

	return rec, nil
}

func (s *Store) Upsert(_ context.Context, userID string, rec profiles.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = rec

	return nil
}
