package provider

import (
	"context"
	"sync"
	"time"

	"phone-location-api/internal/domain"
)

// MockProvider is a configurable in-process provider for development and
// testing. It resolves every well-known test prefix to a canned location and
// can simulate delays and failure outcomes.
type MockProvider struct {
	mu         sync.Mutex
	delay      time.Duration
	failWith   error
	calls      int
	ignoresCtx bool
}

// NewMockProvider creates a mock provider. failWith, when non-nil, is
// returned for every resolve; delay simulates upstream latency.
func NewMockProvider(failWith error, delay time.Duration) *MockProvider {
	return &MockProvider{failWith: failWith, delay: delay}
}

// Resolve returns a canned location after the configured delay.
func (m *MockProvider) Resolve(ctx context.Context, phoneNumber string) (*domain.PhoneLocation, error) {
	m.mu.Lock()
	delay := m.delay
	failWith := m.failWith
	ignoresCtx := m.ignoresCtx
	m.calls++
	m.mu.Unlock()

	if delay > 0 {
		if ignoresCtx {
			// Simulates a transport with no native timeout support.
			time.Sleep(delay)
		} else {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if failWith != nil {
		return nil, failWith
	}

	return &domain.PhoneLocation{
		PhoneNumber: phoneNumber,
		Province:    "北京市",
		City:        "北京市",
		Carrier:     domain.CarrierChinaMobile,
		IsValid:     true,
	}, nil
}

// SetFailWith configures the error returned by subsequent resolves.
func (m *MockProvider) SetFailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// SetDelay configures the simulated upstream latency.
func (m *MockProvider) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
}

// SetIgnoresContext makes the mock sleep through its delay without honoring
// context cancellation, for exercising service-side timeout synthesis.
func (m *MockProvider) SetIgnoresContext(ignore bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoresCtx = ignore
}

// Calls returns how many times Resolve was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
