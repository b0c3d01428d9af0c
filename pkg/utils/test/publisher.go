package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/folio/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.ProjectEvent

	// Err, when set, is returned by every publish
	Err error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishProject(_ context.Context, e *eventstream.ProjectEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, e)
	return nil
}

// EventTypes returns the types of published events, in order.
func (m *MockPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.EventType
	}
	return out
}

// Events returns the published events, in order.
func (m *MockPublisher) Events() []*eventstream.ProjectEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.ProjectEvent(nil), m.events...)
}

func (m *MockPublisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*MockPublisher)(nil)
