package notify

import (
	"context"
	"sync"
)

// Mock records events. Test double.
type Mock struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// NewMock creates a recording notifier.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Notify(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

// Test helpers

// SetError makes Notify record the event and then fail with err.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Events returns a copy of the recorded events.
func (m *Mock) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Verify Mock implements Notifier at compile time.
var _ Notifier = (*Mock)(nil)
