package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
// It is primarily useful for testing and for single-process deployments
// that do not require durable persistence across restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	byHash  map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byHash: make(map[string]struct{})}
}

// Head implements Store.
func (s *MemoryStore) Head(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return "", nil
	}
	return s.entries[len(s.entries)-1].ThisHash, nil
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, e *Entry) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[e.ThisHash]; exists {
		return nil, ErrDuplicateHash
	}

	var tail string
	if len(s.entries) > 0 {
		tail = s.entries[len(s.entries)-1].ThisHash
	}
	if e.PrevHash != tail {
		return nil, ErrStaleHead
	}

	stored := *e
	stored.Seq = int64(len(s.entries) + 1)
	stored.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, &stored)
	s.byHash[stored.ThisHash] = struct{}{}
	return &stored, nil
}

// AllOrdered implements Store. The returned entries are copies; mutating
// them does not affect the ledger.
func (s *MemoryStore) AllOrdered(_ context.Context) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, len(s.entries))
	for i, e := range s.entries {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// Len implements Store.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
