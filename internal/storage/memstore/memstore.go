// Package memstore keeps the ledger in append-only in-process tables.
package memstore

import (
	"context"
	"sync"

	"ticket-ledger/internal/models"
	"ticket-ledger/internal/storage"
)

type tables struct {
	counters   map[string]uint64
	policy     *models.Policy
	events     []models.Event // index = id-1
	tickets    []models.Ticket
	organizers map[string]models.OrganizerRecord
	owned      map[string][]uint64
	byEvent    map[uint64][]uint64
}

// Store serialises writers and lets readers share the committed tables.
type Store struct {
	mu sync.RWMutex
	t  tables
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{t: tables{
		counters:   make(map[string]uint64),
		organizers: make(map[string]models.OrganizerRecord),
		owned:      make(map[string][]uint64),
		byEvent:    make(map[uint64][]uint64),
	}}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{t: &s.t}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &txn{t: &s.t, readOnly: true})
}

func (s *Store) Close() error { return nil }
