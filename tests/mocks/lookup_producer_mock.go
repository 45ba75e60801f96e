package mocks

import (
	"context"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/errs"

	"github.com/stretchr/testify/mock"
)

// MockLookupProducer is a mock implementation of mq.LookupProducer
type MockLookupProducer struct {
	mock.Mock
}

// PublishLookupCompleted mocks the PublishLookupCompleted method
func (m *MockLookupProducer) PublishLookupCompleted(ctx context.Context, requestID string, location *domain.PhoneLocation) error {
	args := m.Called(ctx, requestID, location)
	return args.Error(0)
}

// PublishLookupFailed mocks the PublishLookupFailed method
func (m *MockLookupProducer) PublishLookupFailed(ctx context.Context, requestID, phoneNumber string, code errs.Code, message string) error {
	args := m.Called(ctx, requestID, phoneNumber, code, message)
	return args.Error(0)
}

// Close mocks the Close method
func (m *MockLookupProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}
