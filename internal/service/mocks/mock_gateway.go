package mocks

import (
	"context"

	"propertybot/internal/model"
	"propertybot/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Ingest(ctx context.Context, msg model.RawMessage) (*service.IngestResult, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}
