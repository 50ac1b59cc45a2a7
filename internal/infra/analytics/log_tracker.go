package analytics

import (
	"context"
	"log/slog"

	"github.com/yanqian/ask-console/internal/domain/page"
)

// LogTracker writes events as structured log lines.
type LogTracker struct {
	logger *slog.Logger
}

// NewLogTracker constructs a LogTracker.
func NewLogTracker(logger *slog.Logger) *LogTracker {
	return &LogTracker{logger: logger.With("component", "analytics.log")}
}

func (t *LogTracker) Track(ctx context.Context, event page.Event) {
	meta := page.RequestMetaFrom(ctx)
	t.logger.Info("analytics event",
		"action", event.Action,
		"category", event.Category,
		"label", event.Label,
		"value", event.Value,
		"client_id", meta.ClientID,
	)
}

// NopTracker discards every event.
type NopTracker struct{}

func (NopTracker) Track(context.Context, page.Event) {}

var (
	_ page.Tracker = (*LogTracker)(nil)
	_ page.Tracker = NopTracker{}
)
