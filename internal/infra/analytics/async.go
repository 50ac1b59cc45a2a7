package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/yanqian/ask-console/internal/domain/page"
)

type queued struct {
	ctx   context.Context
	event page.Event
}

// AsyncTracker puts a bounded queue and a single worker in front of another tracker.
// Track never blocks; events are dropped when the queue is full or after Close.
type AsyncTracker struct {
	next    page.Tracker
	queue   chan queued
	done    chan struct{}
	logger  *slog.Logger
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewAsyncTracker starts the worker. size <= 0 defaults to 256.
func NewAsyncTracker(next page.Tracker, size int, logger *slog.Logger) *AsyncTracker {
	if size <= 0 {
		size = 256
	}
	t := &AsyncTracker{
		next:   next,
		queue:  make(chan queued, size),
		done:   make(chan struct{}),
		logger: logger.With("component", "analytics.async"),
	}
	go t.run()
	return t
}

func (t *AsyncTracker) Track(ctx context.Context, event page.Event) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.dropped.Add(1)
		return
	}
	select {
	case t.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		n := t.dropped.Add(1)
		t.logger.Warn("analytics queue full, dropping event", "action", event.Action, "dropped_total", n)
	}
}

// Dropped reports how many events were discarded.
func (t *AsyncTracker) Dropped() int64 {
	return t.dropped.Load()
}

// Close stops intake and waits for the queue to drain or ctx to end.
func (t *AsyncTracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *AsyncTracker) run() {
	defer close(t.done)
	for item := range t.queue {
		t.deliver(item)
	}
}

func (t *AsyncTracker) deliver(item queued) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("analytics tracker panicked", "action", item.event.Action, "panic", r)
		}
	}()
	t.next.Track(item.ctx, item.event)
}

var _ page.Tracker = (*AsyncTracker)(nil)
