package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"phone-location-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*HTTPProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewHTTPProvider(&HTTPProviderConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	}, zap.NewNop())
	return p, srv
}

func TestHTTPProvider_ResolveSuccess(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "13800138000", r.URL.Query().Get("number"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"phone_number":"13800138000","province":"北京市","city":"北京市","carrier":"china_mobile","is_valid":true}`))
	})

	loc, err := p.Resolve(context.Background(), "13800138000")
	require.NoError(t, err)
	assert.Equal(t, "13800138000", loc.PhoneNumber)
	assert.Equal(t, "北京市", loc.Province)
	assert.Equal(t, domain.CarrierChinaMobile, loc.Carrier)
	assert.True(t, loc.IsValid)
}

func TestHTTPProvider_StatusClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "401 is auth failure",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrAuthFailed)
			},
		},
		{
			name:   "403 is permission denied",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrPermissionDenied)
			},
		},
		{
			name:    "429 is rate limited with retry hint",
			status:  http.StatusTooManyRequests,
			headers: map[string]string{"Retry-After": "30"},
			check: func(t *testing.T, err error) {
				var rle *RateLimitError
				require.ErrorAs(t, err, &rle)
				assert.Equal(t, 30*time.Second, rle.RetryAfter)
			},
		},
		{
			name:   "429 without hint",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				var rle *RateLimitError
				require.ErrorAs(t, err, &rle)
				assert.Zero(t, rle.RetryAfter)
			},
		},
		{
			name:   "504 is timeout",
			status: http.StatusGatewayTimeout,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrTimeout)
			},
		},
		{
			name:   "503 is unavailable",
			status: http.StatusServiceUnavailable,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnavailable)
			},
		},
		{
			name:   "unexpected status stays unclassified",
			status: http.StatusTeapot,
			check: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrAuthFailed)
				assert.NotErrorIs(t, err, ErrUnavailable)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			})

			loc, err := p.Resolve(context.Background(), "13800138000")
			assert.Nil(t, loc)
			tt.check(t, err)
		})
	}
}

func TestHTTPProvider_DegradedResponse(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		// Structurally valid but carrier detection missing.
		w.Write([]byte(`{"phone_number":"13800138000","province":"广东省","city":"深圳市","carrier":"","is_valid":true}`))
	})

	loc, err := p.Resolve(context.Background(), "13800138000")
	assert.Nil(t, loc)

	var degraded *DegradedError
	require.ErrorAs(t, err, &degraded)
	assert.Equal(t, "深圳市", degraded.Partial["city"])
}

func TestHTTPProvider_MalformedBody(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := p.Resolve(context.Background(), "13800138000")
	var degraded *DegradedError
	require.ErrorAs(t, err, &degraded)
}

func TestHTTPProvider_ContextDeadline(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Resolve(ctx, "13800138000")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHTTPProvider_ConnectionRefused(t *testing.T) {
	p, srv := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := p.Resolve(context.Background(), "13800138000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 45*time.Second, parseRetryAfter("45"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("soon"))
	assert.Zero(t, parseRetryAfter("-1"))
}

func TestMockProvider_CallCounting(t *testing.T) {
	m := NewMockProvider(nil, 0)
	_, err := m.Resolve(context.Background(), "13800138000")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Calls())

	m.SetFailWith(errors.New("boom"))
	_, err = m.Resolve(context.Background(), "13800138000")
	require.Error(t, err)
	assert.Equal(t, 2, m.Calls())
}
