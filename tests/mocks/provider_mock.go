package mocks

import (
	"context"

	"phone-location-api/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of provider.Provider
type MockProvider struct {
	mock.Mock
}

// Resolve mocks the Resolve method
func (m *MockProvider) Resolve(ctx context.Context, phoneNumber string) (*domain.PhoneLocation, error) {
	args := m.Called(ctx, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneLocation), args.Error(1)
}
