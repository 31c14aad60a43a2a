package sink

import (
	"context"
	"errors"

	"github.com/rl1809/plant-floor/internal/core/domain"
	"github.com/rl1809/plant-floor/internal/port"
)

// Multi fans every event out to all sinks; one failing sink does not stop the others.
type Multi struct {
	sinks []port.EventSink
}

func NewMulti(sinks ...port.EventSink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) LogEvent(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.LogEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
