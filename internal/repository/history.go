package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/errs"
	"phone-location-api/internal/result"
)

// LookupRecord is one completed lookup attempt, kept for auditing. The
// history store is an audit trail, not a cache: lookups never read from it.
type LookupRecord struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RequestID   string    `json:"request_id" gorm:"size:36;index"`
	PhoneNumber string    `json:"phone_number" gorm:"size:16;index;not null"`
	Success     bool      `json:"success" gorm:"not null"`
	ErrorCode   string    `json:"error_code" gorm:"size:32;index"`
	Retryable   bool      `json:"retryable"`
	Province    string    `json:"province" gorm:"size:64"`
	City        string    `json:"city" gorm:"size:64"`
	Carrier     string    `json:"carrier" gorm:"size:32"`
	Attempts    int       `json:"attempts" gorm:"not null;default:1"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for GORM
func (LookupRecord) TableName() string {
	return "lookup_records"
}

// NewLookupRecord builds a record from a finished lookup outcome.
func NewLookupRecord(requestID, phoneNumber string, res result.Result[domain.PhoneLocation], attempts int, duration time.Duration) *LookupRecord {
	record := &LookupRecord{
		RequestID:   requestID,
		PhoneNumber: phoneNumber,
		Success:     res.Success,
		Attempts:    attempts,
		DurationMs:  duration.Milliseconds(),
	}
	if res.Success {
		record.Province = res.Data.Province
		record.City = res.Data.City
		record.Carrier = string(res.Data.Carrier)
	} else {
		record.ErrorCode = string(res.ErrorCode)
		record.Retryable = res.IsRetryable()
	}
	return record
}

// HistoryRepository stores and queries the lookup audit trail.
type HistoryRepository interface {
	// Record appends one lookup outcome.
	Record(ctx context.Context, record *LookupRecord) error
	// Recent returns the most recent records for a phone number,
	// newest first.
	Recent(ctx context.Context, phoneNumber string, limit int) ([]LookupRecord, error)
	// CountByCode tallies failed lookups per error code since the
	// given time.
	CountByCode(ctx context.Context, since time.Time) (map[errs.Code]int64, error)
}

// InMemoryHistoryRepository keeps records in memory. Used when the
// database type is "memory" and in tests.
type InMemoryHistoryRepository struct {
	mu      sync.RWMutex
	records []LookupRecord
	nextID  uint
}

// NewInMemoryHistoryRepository creates an empty in-memory history store.
func NewInMemoryHistoryRepository() *InMemoryHistoryRepository {
	return &InMemoryHistoryRepository{nextID: 1}
}

// Record appends one lookup outcome.
func (r *InMemoryHistoryRepository) Record(ctx context.Context, record *LookupRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = r.nextID
	r.nextID++
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, *record)
	return nil
}

// Recent returns the most recent records for a phone number, newest first.
func (r *InMemoryHistoryRepository) Recent(ctx context.Context, phoneNumber string, limit int) ([]LookupRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]LookupRecord, 0)
	for _, record := range r.records {
		if record.PhoneNumber == phoneNumber {
			matched = append(matched, record)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// CountByCode tallies failed lookups per error code since the given time.
func (r *InMemoryHistoryRepository) CountByCode(ctx context.Context, since time.Time) (map[errs.Code]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[errs.Code]int64)
	for _, record := range r.records {
		if record.Success || record.CreatedAt.Before(since) {
			continue
		}
		code, err := errs.FromCode(record.ErrorCode)
		if err != nil {
			continue
		}
		counts[code]++
	}
	return counts, nil
}
