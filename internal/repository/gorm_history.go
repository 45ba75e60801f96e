package repository

import (
	"context"
	"fmt"
	"time"

	"phone-location-api/internal/errs"

	"gorm.io/gorm"
)

// GormHistoryRepository persists the lookup audit trail via GORM
// (sqlite or postgres, per configuration).
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a GORM-backed history store.
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

// Record appends one lookup outcome.
func (r *GormHistoryRepository) Record(ctx context.Context, record *LookupRecord) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to record lookup: %w", err)
	}
	return nil
}

// Recent returns the most recent records for a phone number, newest first.
func (r *GormHistoryRepository) Recent(ctx context.Context, phoneNumber string, limit int) ([]LookupRecord, error) {
	query := r.db.WithContext(ctx).
		Where("phone_number = ?", phoneNumber).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []LookupRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query lookup history: %w", err)
	}
	return records, nil
}

// CountByCode tallies failed lookups per error code since the given time.
func (r *GormHistoryRepository) CountByCode(ctx context.Context, since time.Time) (map[errs.Code]int64, error) {
	type codeCount struct {
		ErrorCode string
		Count     int64
	}

	var rows []codeCount
	err := r.db.WithContext(ctx).
		Model(&LookupRecord{}).
		Select("error_code, COUNT(*) as count").
		Where("success = ? AND created_at >= ?", false, since).
		Group("error_code").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count lookup failures: %w", err)
	}

	counts := make(map[errs.Code]int64, len(rows))
	for _, row := range rows {
		code, err := errs.FromCode(row.ErrorCode)
		if err != nil {
			// Rows written before a code was retired are skipped
			// rather than failing the whole report.
			continue
		}
		counts[code] = row.Count
	}
	return counts, nil
}
