package mocks

import (
	"context"
	"time"

	"phone-location-api/internal/errs"
	"phone-location-api/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockHistoryRepository is a mock implementation of repository.HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

// Record mocks the Record method
func (m *MockHistoryRepository) Record(ctx context.Context, record *repository.LookupRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// Recent mocks the Recent method
func (m *MockHistoryRepository) Recent(ctx context.Context, phoneNumber string, limit int) ([]repository.LookupRecord, error) {
	args := m.Called(ctx, phoneNumber, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.LookupRecord), args.Error(1)
}

// CountByCode mocks the CountByCode method
func (m *MockHistoryRepository) CountByCode(ctx context.Context, since time.Time) (map[errs.Code]int64, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[errs.Code]int64), args.Error(1)
}
