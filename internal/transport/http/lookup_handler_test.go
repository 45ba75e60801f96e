package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/errs"
	"phone-location-api/internal/provider"
	"phone-location-api/internal/repository"
	"phone-location-api/internal/result"
	"phone-location-api/internal/service"
	"phone-location-api/internal/usecase"
	"phone-location-api/pkg/i18n"
	pkglogger "phone-location-api/pkg/logger"
	"phone-location-api/pkg/validator"
	"phone-location-api/tests/fixtures"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLocalizer(t *testing.T) *i18n.Localizer {
	t.Helper()

	dir := t.TempDir()
	en := "MISSING_REQUIRED: 'Required parameter is missing'\nTIMEOUT: 'Operation timed out'\n"
	zh := "MISSING_REQUIRED: '缺少必需参数'\nTIMEOUT: '操作超时'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.yaml"), []byte(en), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zh.yaml"), []byte(zh), 0644))

	localizer, err := i18n.NewLocalizer(&i18n.Config{
		DefaultLanguage: "en",
		TranslationDir:  dir,
	})
	require.NoError(t, err)
	return localizer
}

func setupTestServer(t *testing.T, prov provider.Provider) (*echo.Echo, *repository.InMemoryHistoryRepository) {
	t.Helper()

	healthy := func(context.Context) error { return nil }
	return setupTestServerWithProbes(t, prov, map[string]HealthProbe{
		"provider": healthy,
		"history":  healthy,
	})
}

func setupTestServerWithProbes(t *testing.T, prov provider.Provider, probes map[string]HealthProbe) (*echo.Echo, *repository.InMemoryHistoryRepository) {
	t.Helper()

	log, err := pkglogger.NewDevelopment()
	require.NoError(t, err)

	svc, err := service.NewLookupService(prov, service.Config{
		APIKey:         "test-key",
		DefaultTimeout: time.Second,
	}, log.Logger)
	require.NoError(t, err)

	history := repository.NewInMemoryHistoryRepository()
	policy := usecase.RetryPolicy{
		MaxAttempts: 1,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  time.Millisecond,
	}
	uc, err := usecase.NewLookupUsecase(svc, history, nil, policy, log)
	require.NoError(t, err)

	handler := NewLookupHandler(uc, validator.New(), testLocalizer(t), "test", probes)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandlerMiddleware()
	e.Use(RequestIDMiddleware())
	e.Use(I18nMiddleware(testLocalizer(t)))
	handler.RegisterRoutes(e)

	return e, history
}

func doJSON(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) result.Result[domain.PhoneLocation] {
	t.Helper()
	var res result.Result[domain.PhoneLocation]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestLookupEndpoint(t *testing.T) {
	t.Run("successful lookup", func(t *testing.T) {
		e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

		rec := doJSON(e, http.MethodPost, "/api/v1/lookups", `{"phone_number":"13812345678"}`, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

		res := decodeResult(t, rec)
		assert.True(t, res.Success)
		assert.Equal(t, "北京市", res.Data.City)
		assert.Equal(t, domain.CarrierChinaMobile, res.Data.Carrier)
	})

	t.Run("missing phone number maps to MISSING_REQUIRED", func(t *testing.T) {
		e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

		rec := doJSON(e, http.MethodPost, "/api/v1/lookups", `{}`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decodeResult(t, rec)
		assert.False(t, res.Success)
		assert.Equal(t, errs.CodeMissingRequired, res.ErrorCode)
		assert.False(t, res.IsRetryable())
	})

	t.Run("malformed number fails DTO validation", func(t *testing.T) {
		e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

		rec := doJSON(e, http.MethodPost, "/api/v1/lookups", `{"phone_number":"not-a-number"}`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decodeResult(t, rec)
		assert.Equal(t, errs.CodeValidationFailed, res.ErrorCode)
		assert.Equal(t, "phone_number", res.Metadata["field"])
	})

	t.Run("negative timeout maps to INVALID_INPUT", func(t *testing.T) {
		e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

		rec := doJSON(e, http.MethodPost, "/api/v1/lookups",
			`{"phone_number":"13812345678","timeout_seconds":-5}`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decodeResult(t, rec)
		// Out-of-range timeouts are classified by the service, so the
		// body and path variants report the same code.
		assert.Equal(t, errs.CodeInvalidInput, res.ErrorCode)
	})

	t.Run("invalid JSON body maps to INVALID_INPUT", func(t *testing.T) {
		e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

		rec := doJSON(e, http.MethodPost, "/api/v1/lookups", `{"phone_number":`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decodeResult(t, rec)
		assert.Equal(t, errs.CodeInvalidInput, res.ErrorCode)
	})

	t.Run("caller request id is propagated", func(t *testing.T) {
		e, history := setupTestServer(t, provider.NewMockProvider(nil, 0))

		rec := doJSON(e, http.MethodPost, "/api/v1/lookups", `{"phone_number":"13812345678"}`,
			map[string]string{echo.HeaderXRequestID: "req-pinned"})

		assert.Equal(t, "req-pinned", rec.Header().Get(echo.HeaderXRequestID))

		records, err := history.Recent(context.Background(), "13812345678", 1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "req-pinned", records[0].RequestID)
	})

	t.Run("error message is localized for zh", func(t *testing.T) {
		e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

		rec := doJSON(e, http.MethodPost, "/api/v1/lookups", `{}`,
			map[string]string{"X-Language": "zh"})

		assert.Equal(t, "zh", rec.Header().Get("Content-Language"))
		res := decodeResult(t, rec)
		assert.Equal(t, errs.CodeMissingRequired, res.ErrorCode)
		assert.Equal(t, "缺少必需参数", res.ErrorMessage)
	})
}

func TestLookupByPathEndpoint(t *testing.T) {
	t.Run("successful lookup via path", func(t *testing.T) {
		e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

		rec := doJSON(e, http.MethodGet, "/api/v1/lookups/13812345678", "", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		res := decodeResult(t, rec)
		assert.True(t, res.Success)
	})

	t.Run("bad timeout query param", func(t *testing.T) {
		e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

		rec := doJSON(e, http.MethodGet, "/api/v1/lookups/13812345678?timeout_seconds=abc", "", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decodeResult(t, rec)
		assert.Equal(t, errs.CodeInvalidInput, res.ErrorCode)
	})
}

func TestLookupEndpoint_ProviderFailures(t *testing.T) {
	tests := []struct {
		name       string
		failWith   error
		wantStatus int
		wantCode   errs.Code
		retryable  bool
	}{
		{
			name:       "auth failure",
			failWith:   provider.ErrAuthFailed,
			wantStatus: http.StatusUnauthorized,
			wantCode:   errs.CodeCredentialsInvalid,
			retryable:  false,
		},
		{
			name:       "permission denied",
			failWith:   provider.ErrPermissionDenied,
			wantStatus: http.StatusForbidden,
			wantCode:   errs.CodePermissionDenied,
			retryable:  false,
		},
		{
			name:       "rate limited",
			failWith:   &provider.RateLimitError{RetryAfter: 30 * time.Second},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   errs.CodeRateLimited,
			retryable:  true,
		},
		{
			name:       "provider timeout",
			failWith:   provider.ErrTimeout,
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   errs.CodeTimeout,
			retryable:  true,
		},
		{
			name:       "provider unavailable",
			failWith:   provider.ErrUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   errs.CodeServiceUnavailable,
			retryable:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := setupTestServer(t, provider.NewMockProvider(tt.failWith, 0))

			rec := doJSON(e, http.MethodPost, "/api/v1/lookups", `{"phone_number":"13812345678"}`, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			res := decodeResult(t, rec)
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantCode, res.ErrorCode)
			assert.Equal(t, tt.retryable, res.IsRetryable())
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

	for i := 0; i < 3; i++ {
		rec := doJSON(e, http.MethodPost, "/api/v1/lookups", `{"phone_number":"13812345678"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	t.Run("returns recorded lookups", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/api/v1/lookups/13812345678/history?limit=2", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var response LookupHistoryResponseDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "13812345678", response.PhoneNumber)
		assert.Equal(t, 2, response.Total)
		for _, entry := range response.Records {
			assert.True(t, entry.Success)
			assert.Equal(t, "北京市", entry.City)
		}
	})

	t.Run("includes failed attempts", func(t *testing.T) {
		e, history := setupTestServer(t, provider.NewMockProvider(nil, 0))
		require.NoError(t, history.Record(context.Background(),
			fixtures.SuccessfulLookupRecord("req-ok")))
		require.NoError(t, history.Record(context.Background(),
			fixtures.FailedLookupRecord("req-failed", "TIMEOUT", true)))

		rec := doJSON(e, http.MethodGet, "/api/v1/lookups/13812345678/history", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var response LookupHistoryResponseDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		require.Equal(t, 2, response.Total)

		byRequestID := make(map[string]LookupHistoryEntryDTO, len(response.Records))
		for _, entry := range response.Records {
			byRequestID[entry.RequestID] = entry
		}
		assert.True(t, byRequestID["req-ok"].Success)
		assert.False(t, byRequestID["req-failed"].Success)
		assert.Equal(t, "TIMEOUT", byRequestID["req-failed"].ErrorCode)
		assert.True(t, byRequestID["req-failed"].Retryable)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/api/v1/lookups/13812345678/history?limit=-1", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFailureStatsEndpoint(t *testing.T) {
	e, _ := setupTestServer(t, provider.NewMockProvider(provider.ErrAuthFailed, 0))

	rec := doJSON(e, http.MethodPost, "/api/v1/lookups", `{"phone_number":"13812345678"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/stats/failures", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats FailureStatsResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Counts["CREDENTIALS_INVALID"])
	assert.Equal(t, 3600, stats.WindowSeconds)
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("all probes pass", func(t *testing.T) {
		e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

		rec := doJSON(e, http.MethodGet, "/api/v1/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var health HealthResponseDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, "test", health.Version)
		assert.Equal(t, "healthy", health.Services["provider"])
		assert.Equal(t, "healthy", health.Services["history"])
	})

	t.Run("failing probe degrades status", func(t *testing.T) {
		e, _ := setupTestServerWithProbes(t, provider.NewMockProvider(nil, 0), map[string]HealthProbe{
			"provider": func(context.Context) error { return nil },
			"history":  func(context.Context) error { return errors.New("connection refused") },
		})

		rec := doJSON(e, http.MethodGet, "/api/v1/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var health HealthResponseDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "unavailable", health.Services["history"])
		assert.Equal(t, "healthy", health.Services["provider"])
	})

	t.Run("nil probe reports not_configured", func(t *testing.T) {
		e, _ := setupTestServerWithProbes(t, provider.NewMockProvider(nil, 0), map[string]HealthProbe{
			"provider": nil,
		})

		rec := doJSON(e, http.MethodGet, "/api/v1/health", "", nil)

		var health HealthResponseDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, "not_configured", health.Services["provider"])
	})
}

func TestUnknownRouteRendersGenericError(t *testing.T) {
	e, _ := setupTestServer(t, provider.NewMockProvider(nil, 0))

	rec := doJSON(e, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
}
