package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/ask-console/internal/domain/session"
)

type snapshotRecord struct {
	payload   session.Snapshot
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the session store for tests/dev.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]snapshotRecord
	now   func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]snapshotRecord), now: time.Now}
}

// Load implements session.Store.
func (s *MemoryStore) Load(_ context.Context, id string) (session.Snapshot, bool, error) {
	if id == "" {
		return session.Snapshot{}, false, nil
	}
	s.mu.RLock()
	record, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return session.Snapshot{}, false, nil
	}
	if s.hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.items, id)
		s.mu.Unlock()
		return session.Snapshot{}, false, nil
	}
	return record.payload, true, nil
}

// Save stores the snapshot with optional TTL.
func (s *MemoryStore) Save(_ context.Context, id string, snapshot session.Snapshot, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.items[id] = snapshotRecord{payload: snapshot, expiresAt: exp}
	return nil
}

// Delete removes the snapshot.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// PurgeExpired drops every expired snapshot and reports how many were removed.
func (s *MemoryStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, record := range s.items {
		if s.hasExpired(record.expiresAt) {
			delete(s.items, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored snapshots, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(s.now())
}

var (
	_ session.Store        = (*MemoryStore)(nil)
	_ session.ExpiryPurger = (*MemoryStore)(nil)
)
