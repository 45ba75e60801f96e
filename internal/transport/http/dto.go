package http

import (
	"time"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/repository"
)

// LookupRequestDTO is the body of a lookup request. The phone number and
// timeout are validated semantically by the lookup service so that missing,
// malformed, and out-of-range values map to their own error codes; the
// cnphone tag only guards values that are present.
type LookupRequestDTO struct {
	PhoneNumber    string `json:"phone_number" validate:"omitempty,cnphone"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ToLookupQuery converts the DTO to a domain lookup query
func (dto *LookupRequestDTO) ToLookupQuery() domain.LookupQuery {
	return domain.LookupQuery{
		PhoneNumber: dto.PhoneNumber,
		Timeout:     time.Duration(dto.TimeoutSeconds) * time.Second,
	}
}

// LookupHistoryEntryDTO is one audit trail entry in API responses
type LookupHistoryEntryDTO struct {
	RequestID   string    `json:"request_id"`
	PhoneNumber string    `json:"phone_number"`
	Success     bool      `json:"success"`
	ErrorCode   string    `json:"error_code,omitempty"`
	Retryable   bool      `json:"retryable,omitempty"`
	Province    string    `json:"province,omitempty"`
	City        string    `json:"city,omitempty"`
	Carrier     string    `json:"carrier,omitempty"`
	Attempts    int       `json:"attempts"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// LookupHistoryResponseDTO is the response for history queries
type LookupHistoryResponseDTO struct {
	PhoneNumber string                  `json:"phone_number"`
	Total       int                     `json:"total"`
	Records     []LookupHistoryEntryDTO `json:"records"`
}

// FromLookupRecords converts audit records to a history response
func FromLookupRecords(phoneNumber string, records []repository.LookupRecord) *LookupHistoryResponseDTO {
	entries := make([]LookupHistoryEntryDTO, 0, len(records))
	for _, record := range records {
		entries = append(entries, LookupHistoryEntryDTO{
			RequestID:   record.RequestID,
			PhoneNumber: record.PhoneNumber,
			Success:     record.Success,
			ErrorCode:   record.ErrorCode,
			Retryable:   record.Retryable,
			Province:    record.Province,
			City:        record.City,
			Carrier:     record.Carrier,
			Attempts:    record.Attempts,
			DurationMs:  record.DurationMs,
			CreatedAt:   record.CreatedAt,
		})
	}
	return &LookupHistoryResponseDTO{
		PhoneNumber: phoneNumber,
		Total:       len(entries),
		Records:     entries,
	}
}

// FailureStatsResponseDTO tallies failed lookups per error code
type FailureStatsResponseDTO struct {
	WindowSeconds int              `json:"window_seconds"`
	Counts        map[string]int64 `json:"counts"`
}

// HealthResponseDTO is the health check response
type HealthResponseDTO struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// NewHealthResponse creates a health check response
func NewHealthResponse(version string, services map[string]string) *HealthResponseDTO {
	status := "healthy"
	for _, state := range services {
		if state != "healthy" && state != "not_configured" {
			status = "degraded"
			break
		}
	}
	return &HealthResponseDTO{
		Status:    status,
		Version:   version,
		Timestamp: time.Now().UTC(),
		Services:  services,
	}
}
