package sink

import (
	"context"
	"sync"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

// Memory keeps every event in process. Safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	events []domain.Event
	closed bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) LogEvent(_ context.Context, ev domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Memory) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Lines renders the recorded events with FormatLine.
func (m *Memory) Lines() []string {
	events := m.Events()
	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = FormatLine(ev)
	}
	return lines
}
