package domain

import (
	"fmt"
	"time"
)

// Carrier identifies the mobile network operator owning a number block.
type Carrier string

const (
	CarrierChinaMobile  Carrier = "china_mobile"
	CarrierChinaUnicom  Carrier = "china_unicom"
	CarrierChinaTelecom Carrier = "china_telecom"
	CarrierUnknown      Carrier = "unknown"
)

// ParseCarrier normalizes a raw carrier string. Anything outside the known
// set maps to CarrierUnknown.
func ParseCarrier(s string) Carrier {
	switch Carrier(s) {
	case CarrierChinaMobile, CarrierChinaUnicom, CarrierChinaTelecom:
		return Carrier(s)
	default:
		return CarrierUnknown
	}
}

// DisplayName returns the operator's local name.
func (c Carrier) DisplayName() string {
	switch c {
	case CarrierChinaMobile:
		return "中国移动"
	case CarrierChinaUnicom:
		return "中国联通"
	case CarrierChinaTelecom:
		return "中国电信"
	default:
		return "未知"
	}
}

// PhoneLocation is the geolocation record resolved for a phone number.
type PhoneLocation struct {
	PhoneNumber string  `json:"phone_number"`
	Province    string  `json:"province"`
	City        string  `json:"city"`
	Carrier     Carrier `json:"carrier"`
	// IsValid reports whether the number belongs to an active allocation
	// block, independent of whether the lookup itself succeeded.
	IsValid bool `json:"is_valid"`
}

// String returns a human-readable representation of the location.
func (l PhoneLocation) String() string {
	return fmt.Sprintf("%s - %s %s %s", l.PhoneNumber, l.Province, l.City, l.Carrier.DisplayName())
}

// LookupQuery is the input of a single lookup. A zero Timeout means the
// service-level default applies; a negative Timeout is rejected as invalid.
type LookupQuery struct {
	PhoneNumber string
	Timeout     time.Duration
}

// ValidPhoneNumber reports whether a string is a well-formed Chinese mobile
// number: exactly 11 ASCII digits starting with '1'.
func ValidPhoneNumber(s string) bool {
	if len(s) != 11 {
		return false
	}
	if s[0] != '1' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
