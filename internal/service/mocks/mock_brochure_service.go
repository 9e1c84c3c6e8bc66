package mocks

import (
	"context"
	"io"

	"propertybot/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockBrochureService struct {
	mock.Mock
}

func (m *MockBrochureService) Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}
