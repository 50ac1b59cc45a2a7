package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yanqian/ask-console/internal/domain/page"
)

// ControllerFactory builds the controller bound to one session.
type ControllerFactory func(id string, view page.View, cfg page.Config) *page.Controller

// Handle is a live session: its controller and the view it renders into.
type Handle struct {
	ID         string
	Controller *page.Controller
	View       *View
}

type entry struct {
	handle   *Handle
	lastUsed time.Time
}

// Manager owns the live controllers, one per browser session.
type Manager struct {
	cfg     Config
	store   Store
	factory ControllerFactory
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	live map[string]*entry
}

// NewManager constructs a Manager.
func NewManager(cfg Config, store Store, factory ControllerFactory, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		store:   store,
		factory: factory,
		logger:  logger.With("component", "session.manager"),
		now:     time.Now,
		live:    make(map[string]*entry),
	}
}

// Get returns the live session for id, binding a new controller when needed.
// created reports whether the controller was bound by this call.
func (m *Manager) Get(ctx context.Context, id string) (handle *Handle, created bool) {
	m.mu.Lock()
	if e, ok := m.live[id]; ok {
		e.lastUsed = m.now()
		m.mu.Unlock()
		return e.handle, false
	}
	m.mu.Unlock()

	seed, found, err := m.store.Load(ctx, id)
	if err != nil {
		m.logger.Warn("load session snapshot failed", "session_id", id, "error", err)
	}
	if !found {
		seed = Snapshot{Panel: page.Panel{State: page.StateIdle}}
	}
	view := NewView(id, seed, m.store, m.cfg, m.logger)
	ctrl := m.factory(id, view, page.Config{SessionID: id, PreferredResponseType: seed.SelectedResponseType})
	fresh := &Handle{ID: id, Controller: ctrl, View: view}

	m.mu.Lock()
	if e, ok := m.live[id]; ok {
		// Lost a race with a concurrent request for the same session.
		e.lastUsed = m.now()
		m.mu.Unlock()
		ctrl.Close()
		return e.handle, false
	}
	m.live[id] = &entry{handle: fresh, lastUsed: m.now()}
	m.mu.Unlock()

	if err := ctrl.Init(ctx); err != nil {
		m.logger.Warn("session controller init failed", "session_id", id, "error", err)
	}
	return fresh, true
}

// Len reports the number of live controllers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Sweep unbinds controllers idle for longer than the idle timeout and drops the
// snapshots of sessions that never asked anything.
func (m *Manager) Sweep() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.cfg.IdleTimeout)
	var stale []*Handle

	m.mu.Lock()
	for id, e := range m.live {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.handle)
			delete(m.live, id)
		}
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.storeTimeout())
	defer cancel()
	for _, h := range stale {
		h.Controller.Close()
		if h.View.Snapshot().Panel.State == page.StateIdle {
			if err := m.store.Delete(ctx, h.ID); err != nil {
				m.logger.Warn("delete session snapshot failed", "session_id", h.ID, "error", err)
			}
		}
	}
	if purger, ok := m.store.(ExpiryPurger); ok {
		if purged, err := purger.PurgeExpired(ctx); err != nil {
			m.logger.Warn("purge expired snapshots failed", "error", err)
		} else if purged > 0 {
			m.logger.Debug("purged expired snapshots", "count", purged)
		}
	}
	if len(stale) > 0 {
		m.logger.Debug("unbound idle sessions", "count", len(stale))
	}
	return len(stale)
}

func (m *Manager) storeTimeout() time.Duration {
	if m.cfg.SaveTimeout > 0 {
		return m.cfg.SaveTimeout
	}
	return 2 * time.Second
}

// Run sweeps idle sessions until ctx ends, then unbinds everything.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Close()
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close unbinds every live controller.
func (m *Manager) Close() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.live))
	for id, e := range m.live {
		handles = append(handles, e.handle)
		delete(m.live, id)
	}
	m.mu.Unlock()
	for _, h := range handles {
		h.Controller.Close()
	}
}
