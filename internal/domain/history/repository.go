package history

import (
	"context"

	"github.com/yanqian/ask-console/internal/domain/page"
)

// Repository stores completed ask submissions.
type Repository interface {
	page.HistoryRecorder
	Recent(ctx context.Context, sessionID string, limit int) ([]page.QueryRecord, error)
}

// DefaultRecentLimit caps Recent when the caller passes no limit.
const DefaultRecentLimit = 20
