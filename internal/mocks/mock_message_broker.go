package mocks

import (
	"context"
	"sync"

	"github.com/RezaEskandarii/driveq/internal/message_broaker"
)

// MockMessageBroker is a mock implementation of message_broaker.MessageBroker for testing.
// Messages are recorded only when PublishFunc is nil or returns nil.
type MockMessageBroker struct {
	PublishFunc func(ctx context.Context, msg message_broaker.Message) error
	CloseFunc   func() error

	mu        sync.Mutex
	published []message_broaker.Message
}

var _ message_broaker.MessageBroker = (*MockMessageBroker)(nil)

func (m *MockMessageBroker) Publish(ctx context.Context, msg message_broaker.Message) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.published = append(m.published, msg)
	m.mu.Unlock()
	return nil
}

func (m *MockMessageBroker) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockMessageBroker) Published() []message_broaker.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]message_broaker.Message(nil), m.published...)
}
