package queue

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockQueue implements Queue for tests elsewhere in the module.
type MockQueue struct {
	mock.Mock
}

func (q *MockQueue) Publish(ctx context.Context, subject string, id int64) error {
	args := q.Called(ctx, subject, id)
	return args.Error(0)
}

func (q *MockQueue) Consume(ctx context.Context, subject string) (Message, error) {
	args := q.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Message), args.Error(1)
}

func (q *MockQueue) Close() error {
	args := q.Called()
	return args.Error(0)
}

// MockMessage implements Message for tests.
type MockMessage struct {
	mock.Mock
	id int64
}

// NewMockMessage builds a MockMessage carrying id, with Ack/Nak
// expectations to be set by the caller.
func NewMockMessage(id int64) *MockMessage {
	return &MockMessage{id: id}
}

func (m *MockMessage) ID() int64 { return m.id }

func (m *MockMessage) Ack() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMessage) Nak() error {
	args := m.Called()
	return args.Error(0)
}
