package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"phone-location-api/internal/domain"

	"go.uber.org/zap"
)

// HTTPProviderConfig holds configuration for the HTTP provider.
type HTTPProviderConfig struct {
	BaseURL string
	APIKey  string
}

// HTTPProvider resolves numbers against the upstream vendor's REST API.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// locateResponse is the vendor's wire format for a successful lookup.
type locateResponse struct {
	PhoneNumber string `json:"phone_number"`
	Province    string `json:"province"`
	City        string `json:"city"`
	Carrier     string `json:"carrier"`
	IsValid     bool   `json:"is_valid"`
}

// NewHTTPProvider creates a provider backed by the upstream HTTP API. The
// client carries no timeout of its own; deadlines come from the per-request
// context.
func NewHTTPProvider(cfg *HTTPProviderConfig, logger *zap.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{},
		logger:  logger,
	}
}

// Resolve performs one lookup round trip and maps the upstream response onto
// the provider outcome contract.
func (p *HTTPProvider) Resolve(ctx context.Context, phoneNumber string) (*domain.PhoneLocation, error) {
	endpoint := fmt.Sprintf("%s/v1/locate?number=%s", p.baseURL, url.QueryEscape(phoneNumber))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.classifyTransportError(err)
	}
	defer resp.Body.Close()

	p.logger.Debug("Upstream lookup completed",
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	switch resp.StatusCode {
	case http.StatusOK:
		return p.decodeLocation(resp.Body)
	case http.StatusUnauthorized:
		return nil, ErrAuthFailed
	case http.StatusForbidden, http.StatusPaymentRequired:
		return nil, ErrPermissionDenied
	case http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return nil, ErrTimeout
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return nil, ErrUnavailable
	default:
		return nil, fmt.Errorf("upstream returned unexpected status %d", resp.StatusCode)
	}
}

// decodeLocation parses a 200 response. A body without carrier detection is
// reported as degraded, carrying the usable fields.
func (p *HTTPProvider) decodeLocation(body io.Reader) (*domain.PhoneLocation, error) {
	var wire locateResponse
	if err := json.NewDecoder(body).Decode(&wire); err != nil {
		return nil, &DegradedError{
			Reason:  "response body is not valid JSON",
			Partial: nil,
		}
	}

	if wire.Carrier == "" || wire.Province == "" {
		return nil, &DegradedError{
			Reason: "carrier or region detection missing",
			Partial: map[string]any{
				"phone_number": wire.PhoneNumber,
				"province":     wire.Province,
				"city":         wire.City,
			},
		}
	}

	return &domain.PhoneLocation{
		PhoneNumber: wire.PhoneNumber,
		Province:    wire.Province,
		City:        wire.City,
		Carrier:     domain.ParseCarrier(wire.Carrier),
		IsValid:     wire.IsValid,
	}, nil
}

// classifyTransportError maps client-side transport failures onto the
// provider outcome contract.
func (p *HTTPProvider) classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return ErrTimeout
		}
		return fmt.Errorf("%w: %s", ErrUnavailable, urlErr.Err)
	}

	return fmt.Errorf("upstream transport error: %w", err)
}

// parseRetryAfter reads a Retry-After header given in seconds. Absent or
// malformed values yield zero.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
