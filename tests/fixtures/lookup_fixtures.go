package fixtures

import (
	"time"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/repository"
)

// Domain fixtures

// BeijingMobileLocation returns a resolved china_mobile number in Beijing
func BeijingMobileLocation() *domain.PhoneLocation {
	return &domain.PhoneLocation{
		PhoneNumber: "13812345678",
		Province:    "北京",
		City:        "北京市",
		Carrier:     domain.CarrierChinaMobile,
		IsValid:     true,
	}
}

// ShanghaiUnicomLocation returns a resolved china_unicom number in Shanghai
func ShanghaiUnicomLocation() *domain.PhoneLocation {
	return &domain.PhoneLocation{
		PhoneNumber: "13098765432",
		Province:    "上海",
		City:        "上海市",
		Carrier:     domain.CarrierChinaUnicom,
		IsValid:     true,
	}
}

// ValidLookupQuery returns a lookup query with the default timeout
func ValidLookupQuery() domain.LookupQuery {
	return domain.LookupQuery{PhoneNumber: "13812345678"}
}

// LookupQueryWithTimeout returns a lookup query with an explicit timeout
func LookupQueryWithTimeout(timeout time.Duration) domain.LookupQuery {
	return domain.LookupQuery{PhoneNumber: "13812345678", Timeout: timeout}
}

// Invalid inputs for negative testing

// InvalidPhoneNumbers returns inputs that fail structural validation:
// missing, too short, too long, wrong prefix, non-digit, full-width digits.
func InvalidPhoneNumbers() []string {
	return []string{
		"",
		"123",
		"138123456789",
		"23812345678",
		"1381234567a",
		"１３８１２３４５６７８",
	}
}

// History fixtures

// SuccessfulLookupRecord returns a recorded successful lookup
func SuccessfulLookupRecord(requestID string) *repository.LookupRecord {
	return &repository.LookupRecord{
		RequestID:   requestID,
		PhoneNumber: "13812345678",
		Success:     true,
		Province:    "北京",
		City:        "北京市",
		Carrier:     string(domain.CarrierChinaMobile),
		Attempts:    1,
		DurationMs:  42,
		CreatedAt:   time.Now().UTC(),
	}
}

// FailedLookupRecord returns a recorded failed lookup
func FailedLookupRecord(requestID, errorCode string, retryable bool) *repository.LookupRecord {
	return &repository.LookupRecord{
		RequestID:   requestID,
		PhoneNumber: "13812345678",
		Success:     false,
		ErrorCode:   errorCode,
		Retryable:   retryable,
		Attempts:    1,
		DurationMs:  17,
		CreatedAt:   time.Now().UTC(),
	}
}
