package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yanqian/ask-console/internal/domain/page"
	"github.com/yanqian/ask-console/pkg/util"
)

// View is the page.View of one session. It keeps the latest state in memory and
// writes it through to the Store so a fresh page load can render it.
type View struct {
	id          string
	store       Store
	ttl         time.Duration
	saveTimeout time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	snapshot Snapshot
	saveMu   sync.Mutex
}

// NewView builds a view seeded with a previously stored snapshot.
func NewView(id string, seed Snapshot, store Store, cfg Config, logger *slog.Logger) *View {
	saveTimeout := cfg.SaveTimeout
	if saveTimeout <= 0 {
		saveTimeout = 2 * time.Second
	}
	return &View{
		id:          id,
		store:       store,
		ttl:         cfg.TTL,
		saveTimeout: saveTimeout,
		logger:      logger.With("component", "session.view", "session_id", id),
		snapshot:    seed,
	}
}

func (v *View) RenderOptions(options []page.ResponseTypeOption, selected string) {
	v.update(func(s *Snapshot) {
		s.Options = append([]page.ResponseTypeOption(nil), options...)
		s.SelectedResponseType = selected
	})
}

func (v *View) RenderPanel(panel page.Panel) {
	v.update(func(s *Snapshot) {
		s.Panel = panel
	})
}

func (v *View) Alert(message string) {
	v.update(func(s *Snapshot) {
		s.Notice = message
	})
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot
}

// TakeNotice returns the pending notice and clears it.
func (v *View) TakeNotice() string {
	var notice string
	v.update(func(s *Snapshot) {
		notice = s.Notice
		s.Notice = ""
	})
	return notice
}

func (v *View) update(mutate func(*Snapshot)) {
	v.mu.Lock()
	mutate(&v.snapshot)
	v.snapshot.UpdatedAt = util.NowUTC()
	v.mu.Unlock()

	if v.store == nil {
		return
	}
	// Saves are serialized and always write the newest state.
	v.saveMu.Lock()
	defer v.saveMu.Unlock()
	snap := v.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), v.saveTimeout)
	defer cancel()
	if err := v.store.Save(ctx, v.id, snap, v.ttl); err != nil {
		v.logger.Warn("persist session snapshot failed", "error", err)
	}
}

var _ page.View = (*View)(nil)
