package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/errs"
	"phone-location-api/internal/provider"
	"phone-location-api/internal/result"

	"go.uber.org/zap"
)

// ErrInvalidConfiguration is returned by NewLookupService for unusable
// construction parameters.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Config holds the construction parameters of the lookup service.
type Config struct {
	APIKey         string
	DefaultTimeout time.Duration
}

// LookupService resolves phone numbers to geolocation records. Query never
// returns an error or panics; every failure path is normalized into a failed
// Result. The service is stateless and safe for concurrent use.
type LookupService interface {
	Query(ctx context.Context, q domain.LookupQuery) result.Result[domain.PhoneLocation]
}

type lookupService struct {
	provider       provider.Provider
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// NewLookupService creates a lookup service. An empty API key or a
// non-positive default timeout fails construction.
func NewLookupService(p provider.Provider, cfg Config, logger *zap.Logger) (LookupService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key must not be empty", ErrInvalidConfiguration)
	}
	if cfg.DefaultTimeout <= 0 {
		return nil, fmt.Errorf("%w: default timeout must be positive, got %s", ErrInvalidConfiguration, cfg.DefaultTimeout)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: provider is required", ErrInvalidConfiguration)
	}

	return &lookupService{
		provider:       p,
		defaultTimeout: cfg.DefaultTimeout,
		logger:         logger,
	}, nil
}

// resolution carries the provider outcome across the timeout boundary.
type resolution struct {
	location *domain.PhoneLocation
	err      error
}

// Query validates the input, invokes the provider under the effective
// deadline and classifies the outcome. Validation failures short-circuit
// before any provider call.
func (s *lookupService) Query(ctx context.Context, q domain.LookupQuery) (res result.Result[domain.PhoneLocation]) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic in lookup query", zap.Any("panic", r))
			res = result.Fail[domain.PhoneLocation](errs.CodeServiceUnavailable,
				fmt.Sprintf("internal failure during lookup: %v", r), nil)
		}
	}()

	logger := s.logger.With(
		zap.String("operation", "Query"),
		zap.String("phone_number", q.PhoneNumber),
	)

	if q.PhoneNumber == "" {
		return result.Fail[domain.PhoneLocation](errs.CodeMissingRequired, "phone_number is required", nil)
	}

	if q.Timeout < 0 {
		return result.Fail[domain.PhoneLocation](errs.CodeInvalidInput,
			fmt.Sprintf("timeout must be positive, got %s", q.Timeout), nil)
	}

	if !domain.ValidPhoneNumber(q.PhoneNumber) {
		return result.Fail[domain.PhoneLocation](errs.CodeValidationFailed,
			fmt.Sprintf("phone number %q is not a valid 11-digit mobile number", q.PhoneNumber), nil)
	}

	timeout := q.Timeout
	if timeout == 0 {
		timeout = s.defaultTimeout
	}

	location, err := s.resolve(ctx, q.PhoneNumber, timeout)
	if err != nil {
		res := s.classify(err)
		logger.Warn("Lookup failed",
			zap.String("error_code", string(res.ErrorCode)),
			zap.Bool("retryable", res.IsRetryable()),
			zap.String("error_message", res.ErrorMessage),
		)
		return res
	}

	if location == nil {
		// A nil record without an error is an incomplete provider response.
		return result.Fail[domain.PhoneLocation](errs.CodeServiceDegraded, "provider returned no data", nil)
	}

	logger.Debug("Lookup succeeded",
		zap.String("province", location.Province),
		zap.String("city", location.City),
		zap.String("carrier", string(location.Carrier)),
	)
	return result.Ok(*location, nil)
}

// resolve invokes the provider and bounds the wait to the effective timeout
// even when the underlying transport ignores the context deadline.
func (s *lookupService) resolve(ctx context.Context, phoneNumber string, timeout time.Duration) (*domain.PhoneLocation, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan resolution, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- resolution{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		location, err := s.provider.Resolve(cctx, phoneNumber)
		ch <- resolution{location: location, err: err}
	}()

	select {
	case out := <-ch:
		return out.location, out.err
	case <-cctx.Done():
		if errors.Is(cctx.Err(), context.Canceled) {
			return nil, context.Canceled
		}
		return nil, provider.ErrTimeout
	}
}

// classify maps a provider outcome onto the error taxonomy. Anything not
// explicitly classified is treated as a transient upstream condition.
func (s *lookupService) classify(err error) result.Result[domain.PhoneLocation] {
	var rle *provider.RateLimitError
	var degraded *provider.DegradedError

	switch {
	case errors.As(err, &rle):
		var metadata map[string]any
		if rle.RetryAfter > 0 {
			metadata = map[string]any{"retry_after_seconds": int(rle.RetryAfter / time.Second)}
		}
		return result.Fail[domain.PhoneLocation](errs.CodeRateLimited, err.Error(), metadata)

	case errors.As(err, &degraded):
		var metadata map[string]any
		if len(degraded.Partial) > 0 {
			metadata = map[string]any{"partial": degraded.Partial}
		}
		return result.Fail[domain.PhoneLocation](errs.CodeServiceDegraded, err.Error(), metadata)

	case errors.Is(err, provider.ErrAuthFailed):
		return result.Fail[domain.PhoneLocation](errs.CodeCredentialsInvalid, err.Error(), nil)

	case errors.Is(err, provider.ErrPermissionDenied):
		return result.Fail[domain.PhoneLocation](errs.CodePermissionDenied, err.Error(), nil)

	case errors.Is(err, provider.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return result.Fail[domain.PhoneLocation](errs.CodeTimeout, err.Error(), nil)

	case errors.Is(err, provider.ErrUnavailable):
		return result.Fail[domain.PhoneLocation](errs.CodeServiceUnavailable, err.Error(), nil)

	default:
		return result.Fail[domain.PhoneLocation](errs.CodeServiceUnavailable,
			fmt.Sprintf("unclassified provider failure: %s", err), nil)
	}
}
