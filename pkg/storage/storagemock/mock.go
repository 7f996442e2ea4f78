package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/solarfleet/solarfleet/pkg/storage"
	"github.com/solarfleet/solarfleet/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) ListPlants(ctx context.Context) ([]types.Plant, error) {
	args := m.Called(ctx)
	plants, _ := args.Get(0).([]types.Plant)
	return plants, args.Error(1)
}

func (m *MockDatabase) GetPlant(ctx context.Context, id string) (types.Plant, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Plant), args.Error(1)
}

func (m *MockDatabase) PutPlant(ctx context.Context, plant types.Plant) error {
	args := m.Called(ctx, plant)
	return args.Error(0)
}

func (m *MockDatabase) UpdatePlantStatus(ctx context.Context, id string, update types.PlantUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockDatabase) FindUnreadNotification(ctx context.Context, userID, message string) (*types.Notification, error) {
	args := m.Called(ctx, userID, message)
	n, _ := args.Get(0).(*types.Notification)
	return n, args.Error(1)
}

func (m *MockDatabase) CreateNotification(ctx context.Context, userID, message string) (types.Notification, error) {
	args := m.Called(ctx, userID, message)
	return args.Get(0).(types.Notification), args.Error(1)
}

func (m *MockDatabase) MarkNotificationRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
