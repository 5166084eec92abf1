package objectstore

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore implements Store for tests elsewhere in the module.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	args := m.Called(ctx, bucket, key, data, contentType)
	return args.Error(0)
}
