package port

import (
	"context"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

type EventSink interface {
	// LogEvent writes one plant event synchronously
	LogEvent(ctx context.Context, event domain.Event) error

	// Close flushes and releases the sink
	Close() error
}

// SinkFactory opens the sink for a single run.
type SinkFactory func(ctx context.Context) (EventSink, error)
