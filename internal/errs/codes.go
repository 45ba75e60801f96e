package errs

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Code identifies one entry in the closed failure taxonomy. Codes are stable
// wire identifiers: once published they are never reused for a different
// meaning.
type Code string

const (
	// Input errors (caller-side defect, not retryable)
	CodeMissingRequired  Code = "MISSING_REQUIRED"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// Authentication / authorization errors (not retryable)
	CodeAuthFailed         Code = "AUTH_FAILED"
	CodeCredentialsInvalid Code = "CREDENTIALS_INVALID"
	CodePermissionDenied   Code = "PERMISSION_DENIED"

	// Resource limit errors (retryable)
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeQuotaExceeded Code = "QUOTA_EXCEEDED"

	// Timeout errors (retryable)
	CodeTimeout Code = "TIMEOUT"

	// Service state errors (retryable)
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeServiceDegraded    Code = "SERVICE_DEGRADED"
)

// ErrUnknownCode is returned by FromCode when a code is not part of the taxonomy.
var ErrUnknownCode = errors.New("unknown error code")

// definition carries the fixed attributes of one taxonomy entry.
type definition struct {
	description string
	retryable   bool
}

// registry is the process-wide constant table backing the taxonomy. It is
// built once and never mutated at runtime.
var registry = map[Code]definition{
	CodeMissingRequired:    {"required parameter is missing", false},
	CodeInvalidInput:       {"parameter is invalid", false},
	CodeValidationFailed:   {"input failed format validation", false},
	CodeAuthFailed:         {"authentication failed", false},
	CodeCredentialsInvalid: {"credentials are invalid or expired", false},
	CodePermissionDenied:   {"permission denied", false},
	CodeRateLimited:        {"request rate limit exceeded", true},
	CodeQuotaExceeded:      {"quota exhausted", true},
	CodeTimeout:            {"request timed out", true},
	CodeServiceUnavailable: {"service is unavailable", true},
	CodeServiceDegraded:    {"service is degraded, response may be incomplete", true},
}

// FromCode resolves a raw code string received from a remote peer into a
// taxonomy entry. It fails with ErrUnknownCode instead of returning a default
// so that unknown codes are never silently reinterpreted.
func FromCode(s string) (Code, error) {
	c := Code(s)
	if _, ok := registry[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCode, s)
	}
	return c, nil
}

// Valid reports whether the code is part of the taxonomy.
func (c Code) Valid() bool {
	_, ok := registry[c]
	return ok
}

// Description returns the human-readable description of the code. Unknown
// codes fall back to the raw code string.
func (c Code) Description() string {
	if def, ok := registry[c]; ok {
		return def.description
	}
	return string(c)
}

// Retryable reports whether the failure class is transient, i.e. the same
// request might succeed if attempted again. Unknown codes report false.
func (c Code) Retryable() bool {
	return registry[c].retryable
}

// HTTPStatus projects the code onto an HTTP status for protocol boundaries.
// The mapping is one-directional presentation only and must never be inverted
// to classify errors.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingRequired, CodeInvalidInput, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeAuthFailed, CodeCredentialsInvalid:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeRateLimited, CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeServiceDegraded:
		return http.StatusPartialContent
	default:
		return http.StatusInternalServerError
	}
}

// All returns every code in the taxonomy, sorted for stable iteration.
func All() []Code {
	codes := make([]Code, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Retryable returns the codes marked as transient.
func Retryable() []Code {
	return filter(true)
}

// NonRetryable returns the codes that signal a caller or configuration defect.
func NonRetryable() []Code {
	return filter(false)
}

func filter(retryable bool) []Code {
	var codes []Code
	for _, c := range All() {
		if registry[c].retryable == retryable {
			codes = append(codes, c)
		}
	}
	return codes
}
