package mocks

import (
	"context"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/result"

	"github.com/stretchr/testify/mock"
)

// MockLookupService is a mock implementation of service.LookupService
type MockLookupService struct {
	mock.Mock
}

// Query mocks the Query method
func (m *MockLookupService) Query(ctx context.Context, q domain.LookupQuery) result.Result[domain.PhoneLocation] {
	args := m.Called(ctx, q)
	return args.Get(0).(result.Result[domain.PhoneLocation])
}
