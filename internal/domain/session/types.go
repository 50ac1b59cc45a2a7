package session

import (
	"context"
	"time"

	"github.com/yanqian/ask-console/internal/domain/page"
)

// Snapshot is the persisted page state of one browser session.
type Snapshot struct {
	SelectedResponseType string                    `json:"selectedResponseType"`
	Options              []page.ResponseTypeOption `json:"options,omitempty"`
	Panel                page.Panel                `json:"panel"`
	Notice               string                    `json:"notice,omitempty"`
	UpdatedAt            time.Time                 `json:"updatedAt"`
}

// Store defines the persistence contract for session snapshots.
type Store interface {
	Load(ctx context.Context, id string) (Snapshot, bool, error)
	Save(ctx context.Context, id string, snapshot Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// ExpiryPurger is implemented by stores that must drop expired snapshots themselves.
type ExpiryPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Config controls session lifetime.
type Config struct {
	// TTL is how long a snapshot survives without activity.
	TTL time.Duration
	// IdleTimeout is how long a live controller stays bound without use.
	IdleTimeout time.Duration
	// SaveTimeout bounds a single snapshot write.
	SaveTimeout time.Duration
}
