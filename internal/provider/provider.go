// Package provider defines the upstream lookup collaborator. The provider is
// solely responsible for transport, authentication headers and wire
// deserialization; classification of its outcomes into the error taxonomy
// happens in the service layer.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phone-location-api/internal/domain"
)

var (
	// ErrAuthFailed signals that the upstream rejected our credentials.
	ErrAuthFailed = errors.New("provider authentication failed")

	// ErrPermissionDenied signals that the credentials are valid but the
	// account lacks permission or is in arrears.
	ErrPermissionDenied = errors.New("provider permission denied")

	// ErrTimeout signals that the upstream did not answer in time.
	ErrTimeout = errors.New("provider request timed out")

	// ErrUnavailable signals that the upstream is down or in maintenance.
	ErrUnavailable = errors.New("provider unavailable")
)

// RateLimitError signals that the upstream throttled the request. RetryAfter
// is zero when the upstream did not suggest a delay.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "provider rate limit exceeded"
}

// DegradedError signals a structurally valid but incomplete response, e.g.
// carrier detection missing. Partial carries whatever fields were usable so
// the caller can decide whether they suffice.
type DegradedError struct {
	Reason  string
	Partial map[string]any
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("provider response degraded: %s", e.Reason)
}

// Provider resolves a phone number to its geolocation record. The context
// carries the effective deadline; implementations should honor it, but the
// lookup service bounds the wait regardless.
type Provider interface {
	Resolve(ctx context.Context, phoneNumber string) (*domain.PhoneLocation, error)
}
