package historyrepo

import (
	"context"
	"sync"

	"github.com/yanqian/ask-console/internal/domain/history"
	"github.com/yanqian/ask-console/internal/domain/page"
)

// MemoryRepository keeps a bounded query log in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []page.QueryRecord
	max     int
}

// NewMemoryRepository constructs the repository. max <= 0 keeps 1000 records.
func NewMemoryRepository(max int) *MemoryRepository {
	if max <= 0 {
		max = 1000
	}
	return &MemoryRepository{max: max}
}

func (r *MemoryRepository) Record(_ context.Context, record page.QueryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	if overflow := len(r.records) - r.max; overflow > 0 {
		r.records = append([]page.QueryRecord(nil), r.records[overflow:]...)
	}
	return nil
}

// Recent returns the newest records of a session, newest first.
func (r *MemoryRepository) Recent(_ context.Context, sessionID string, limit int) ([]page.QueryRecord, error) {
	if limit <= 0 {
		limit = history.DefaultRecentLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]page.QueryRecord, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].SessionID == sessionID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

var _ history.Repository = (*MemoryRepository)(nil)
