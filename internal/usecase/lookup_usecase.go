package usecase

import (
	"context"
	"fmt"
	"time"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/errs"
	"phone-location-api/internal/repository"
	"phone-location-api/internal/result"
	"phone-location-api/internal/service"
	"phone-location-api/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher publishes lookup lifecycle events. Implemented by the
// message queue producer; a nil publisher disables publishing.
type EventPublisher interface {
	PublishLookupCompleted(ctx context.Context, requestID string, location *domain.PhoneLocation) error
	PublishLookupFailed(ctx context.Context, requestID, phoneNumber string, code errs.Code, message string) error
}

// RetryPolicy bounds how the usecase retries retryable failures. The
// lookup service itself never retries; whether and how to retry is the
// caller's decision.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseBackoff is the delay before the first retry; it doubles on
	// each subsequent retry.
	BaseBackoff time.Duration
	// MaxBackoff caps the backoff delay.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy retries twice with a short exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
	}
}

func (p RetryPolicy) validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy max attempts must be at least 1")
	}
	if p.BaseBackoff <= 0 {
		return fmt.Errorf("retry policy base backoff must be positive")
	}
	if p.MaxBackoff < p.BaseBackoff {
		return fmt.Errorf("retry policy max backoff must be >= base backoff")
	}
	return nil
}

// LookupUsecase orchestrates lookups: retries retryable failures,
// records the audit trail, and publishes lifecycle events.
type LookupUsecase struct {
	service service.LookupService
	history repository.HistoryRepository
	events  EventPublisher
	policy  RetryPolicy
	logger  *logger.Logger
}

// NewLookupUsecase creates a lookup orchestrator. The history repository
// and event publisher are optional; the service is not.
func NewLookupUsecase(svc service.LookupService, history repository.HistoryRepository, events EventPublisher, policy RetryPolicy, log *logger.Logger) (*LookupUsecase, error) {
	if svc == nil {
		return nil, fmt.Errorf("lookup service is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return &LookupUsecase{
		service: svc,
		history: history,
		events:  events,
		policy:  policy,
		logger:  log.WithComponent("lookup_usecase"),
	}, nil
}

// Lookup runs one lookup end to end and returns its outcome together
// with the request ID assigned to it. requestID may be empty, in which
// case a new one is generated.
func (u *LookupUsecase) Lookup(ctx context.Context, requestID string, query domain.LookupQuery) (result.Result[domain.PhoneLocation], string) {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	log := u.logger.WithRequestID(requestID)

	start := time.Now()
	res, attempts := u.lookupWithRetry(ctx, log, query)
	duration := time.Since(start)

	u.record(ctx, log, requestID, query.PhoneNumber, res, attempts, duration)
	u.publish(ctx, log, requestID, query.PhoneNumber, res)

	return res, requestID
}

// History returns the most recent lookup outcomes for a phone number.
func (u *LookupUsecase) History(ctx context.Context, phoneNumber string, limit int) ([]repository.LookupRecord, error) {
	if u.history == nil {
		return nil, nil
	}
	return u.history.Recent(ctx, phoneNumber, limit)
}

// FailureCounts tallies failed lookups per error code in the given window.
func (u *LookupUsecase) FailureCounts(ctx context.Context, window time.Duration) (map[errs.Code]int64, error) {
	if u.history == nil {
		return map[errs.Code]int64{}, nil
	}
	return u.history.CountByCode(ctx, time.Now().UTC().Add(-window))
}

func (u *LookupUsecase) lookupWithRetry(ctx context.Context, log *logger.Logger, query domain.LookupQuery) (result.Result[domain.PhoneLocation], int) {
	var res result.Result[domain.PhoneLocation]

	backoff := u.policy.BaseBackoff
	for attempt := 1; ; attempt++ {
		res = u.service.Query(ctx, query)
		if res.Success || !res.IsRetryable() || attempt >= u.policy.MaxAttempts {
			return res, attempt
		}

		delay := backoff
		// A rate-limited provider tells us exactly how long to wait;
		// that beats the computed backoff.
		if hinted, ok := retryAfterHint(res); ok {
			delay = hinted
		}
		if delay > u.policy.MaxBackoff {
			delay = u.policy.MaxBackoff
		}

		log.Warn("Lookup failed with retryable code, backing off",
			zap.String("phone_number", query.PhoneNumber),
			zap.String("error_code", string(res.ErrorCode)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
		)

		select {
		case <-ctx.Done():
			return res, attempt
		case <-time.After(delay):
		}
		backoff *= 2
	}
}

// retryAfterHint extracts the provider's retry-after hint from a failed
// result's metadata, if present.
func retryAfterHint(res result.Result[domain.PhoneLocation]) (time.Duration, bool) {
	raw, ok := res.Metadata["retry_after_seconds"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return time.Duration(v) * time.Second, true
	case int64:
		return time.Duration(v) * time.Second, true
	case float64:
		return time.Duration(v * float64(time.Second)), true
	default:
		return 0, false
	}
}

func (u *LookupUsecase) record(ctx context.Context, log *logger.Logger, requestID, phoneNumber string, res result.Result[domain.PhoneLocation], attempts int, duration time.Duration) {
	if u.history == nil {
		return
	}
	record := repository.NewLookupRecord(requestID, phoneNumber, res, attempts, duration)
	if err := u.history.Record(ctx, record); err != nil {
		// Auditing must not fail the lookup itself.
		log.Error("Failed to record lookup history", zap.Error(err))
	}
}

func (u *LookupUsecase) publish(ctx context.Context, log *logger.Logger, requestID, phoneNumber string, res result.Result[domain.PhoneLocation]) {
	if u.events == nil {
		return
	}

	var err error
	if res.Success {
		location := res.Data
		err = u.events.PublishLookupCompleted(ctx, requestID, &location)
	} else {
		err = u.events.PublishLookupFailed(ctx, requestID, phoneNumber, res.ErrorCode, res.ErrorMessage)
	}
	if err != nil {
		log.Error("Failed to publish lookup event", zap.Error(err))
	}
}
