// Package store keeps the set of row ids the ledger has already accepted.
//
// The set is loaded once from a Backing when the store is opened and every
// new id is written to the backing before it becomes visible in memory, so a
// crash right after a successful post loses nothing that was recorded.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Backing is the durable storage behind a Store.
type Backing interface {
	// Load returns every id recorded so far. Duplicates are allowed and
	// an empty or missing store is not an error.
	Load(ctx context.Context) ([]int64, error)

	// Append durably adds id before returning.
	Append(ctx context.Context, id int64) error

	Close() error
}

type Store struct {
	backing Backing
	logger  *slog.Logger

	mu  sync.RWMutex
	ids map[int64]struct{}
}

// Open loads all ids from backing.
func Open(ctx context.Context, backing Backing, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ids, err := backing.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading processed ids: %w", err)
	}

	s := &Store{
		backing: backing,
		logger:  logger,
		ids:     make(map[int64]struct{}, len(ids)),
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	logger.Info("loaded processed ids", "count", len(s.ids))
	return s, nil
}

// Contains reports whether id has been recorded.
func (s *Store) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Record persists id and then adds it to the in-memory set. Recording an id
// that is already present is a no-op.
func (s *Store) Record(ctx context.Context, id int64) error {
	if s.Contains(id) {
		return nil
	}
	if err := s.backing.Append(ctx, id); err != nil {
		return fmt.Errorf("appending id %d: %w", id, err)
	}

	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("recorded processed id", "row", id)
	return nil
}

// Len returns the number of distinct ids in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func (s *Store) Close() error {
	return s.backing.Close()
}
