package result

import (
	"encoding/json"
	"testing"

	"phone-location-api/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

func TestOk(t *testing.T) {
	r := Ok(payload{City: "Beijing", Count: 3}, nil)

	assert.True(t, r.Success)
	assert.Equal(t, "Beijing", r.Data.City)
	assert.Empty(t, r.ErrorCode)
	assert.Empty(t, r.ErrorMessage)
	assert.False(t, r.IsRetryable())
}

func TestFail(t *testing.T) {
	t.Run("explicit message", func(t *testing.T) {
		r := Fail[payload](errs.CodeRateLimited, "slow down", map[string]any{"retry_after_seconds": 30})

		assert.False(t, r.Success)
		assert.Equal(t, errs.CodeRateLimited, r.ErrorCode)
		assert.Equal(t, "slow down", r.ErrorMessage)
		assert.Equal(t, 30, r.Metadata["retry_after_seconds"])
		assert.Zero(t, r.Data)
	})

	t.Run("message defaults to code description", func(t *testing.T) {
		r := Fail[payload](errs.CodeTimeout, "", nil)
		assert.Equal(t, errs.CodeTimeout.Description(), r.ErrorMessage)
	})
}

func TestMutualExclusivity(t *testing.T) {
	ok := Ok(payload{City: "Shenzhen"}, nil)
	assert.True(t, ok.Success)
	assert.Empty(t, ok.ErrorCode)
	assert.Empty(t, ok.ErrorMessage)

	fail := Fail[payload](errs.CodeServiceUnavailable, "", nil)
	assert.False(t, fail.Success)
	assert.NotEmpty(t, fail.ErrorCode)
	assert.NotEmpty(t, fail.ErrorMessage)
	assert.Zero(t, fail.Data)
}

func TestIsRetryableConsistency(t *testing.T) {
	for _, code := range errs.All() {
		r := Fail[payload](code, "", nil)
		assert.Equal(t, code.Retryable(), r.IsRetryable(), "code %s", code)
	}

	// A success is never retryable, whatever the payload.
	assert.False(t, Ok(payload{}, nil).IsRetryable())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 200, Ok(payload{}, nil).HTTPStatus())
	assert.Equal(t, 429, Fail[payload](errs.CodeRateLimited, "", nil).HTTPStatus())
	assert.Equal(t, 503, Fail[payload](errs.CodeServiceUnavailable, "", nil).HTTPStatus())
}

func TestWireFieldNames(t *testing.T) {
	data, err := json.Marshal(Fail[payload](errs.CodeTimeout, "deadline exceeded", map[string]any{"request_id": "r-1"}))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, false, raw["success"])
	assert.Equal(t, "TIMEOUT", raw["error_code"])
	assert.Equal(t, "deadline exceeded", raw["error_message"])
	assert.Equal(t, true, raw["retryable"])
	assert.NotContains(t, raw, "data")
	require.Contains(t, raw, "metadata")
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Result[payload]
	}{
		{
			name: "success with data",
			in:   Ok(payload{City: "Guangzhou", Count: 7}, map[string]any{"request_id": "r-42"}),
		},
		{
			name: "success with zero-value payload",
			in:   Ok(payload{}, nil),
		},
		{
			name: "failure with message",
			in:   Fail[payload](errs.CodePermissionDenied, "account suspended", nil),
		},
		{
			name: "failure with default message and metadata",
			in:   Fail[payload](errs.CodeServiceDegraded, "", map[string]any{"partial": "carrier missing"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			require.NoError(t, err)

			var out Result[payload]
			require.NoError(t, json.Unmarshal(data, &out))

			assert.Equal(t, tt.in.Success, out.Success)
			assert.Equal(t, tt.in.Data, out.Data)
			assert.Equal(t, tt.in.ErrorCode, out.ErrorCode)
			assert.Equal(t, tt.in.ErrorMessage, out.ErrorMessage)
			assert.Equal(t, tt.in.IsRetryable(), out.IsRetryable())
		})
	}
}

func TestUnmarshalUnknownCode(t *testing.T) {
	var out Result[payload]
	err := json.Unmarshal([]byte(`{"success":false,"error_code":"NOT_A_REAL_CODE","error_message":"x"}`), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnknownCode)
}

func TestSuccessZeroPayloadStaysSuccess(t *testing.T) {
	// The discriminant must survive serialization even when the payload
	// serializes to an all-zero object.
	data, err := json.Marshal(Ok(payload{}, nil))
	require.NoError(t, err)

	var out Result[payload]
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.Success)
	assert.False(t, out.IsRetryable())
}
