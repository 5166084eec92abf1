package classifier

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClassifier implements Classifier for tests elsewhere in the module.
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, text string) (Result, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return Result{}, args.Error(1)
	}
	return args.Get(0).(Result), args.Error(1)
}
