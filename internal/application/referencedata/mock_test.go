package referencedata

import (
	"context"

	"github.com/paymentmanager/backend/internal/domain/geography"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of geography.DataSource
type MockDataSource struct {
	mock.Mock
}

var _ geography.DataSource = (*MockDataSource)(nil)

func (m *MockDataSource) ListCountries(ctx context.Context) ([]geography.Country, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]geography.Country), args.Error(1)
}

func (m *MockDataSource) ListStates(ctx context.Context, country string) ([]string, error) {
	args := m.Called(ctx, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDataSource) ListCities(ctx context.Context, country string) ([]string, error) {
	args := m.Called(ctx, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDataSource) ListCitiesForState(ctx context.Context, country, state string) ([]string, error) {
	args := m.Called(ctx, country, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDataSource) GetCurrency(ctx context.Context, country string) (string, error) {
	args := m.Called(ctx, country)
	return args.String(0), args.Error(1)
}
