package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ask-console/internal/domain/session"
)

// ValkeyStore persists session snapshots using a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "session"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Load(ctx context.Context, id string) (session.Snapshot, bool, error) {
	if id == "" {
		return session.Snapshot{}, false, nil
	}
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(id)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return session.Snapshot{}, false, nil
		}
		return session.Snapshot{}, false, err
	}
	var snapshot session.Snapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return session.Snapshot{}, false, err
	}
	return snapshot, true, nil
}

func (s *ValkeyStore) Save(ctx context.Context, id string, snapshot session.Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key(id)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) Delete(ctx context.Context, id string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(id)).Build()).Error()
}

func (s *ValkeyStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

var _ session.Store = (*ValkeyStore)(nil)
