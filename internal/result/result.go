// Package result provides the generic success/failure envelope returned by
// the lookup pipeline. A Result is constructed exactly once, either through
// Ok or Fail, and is immutable afterwards.
package result

import (
	"encoding/json"
	"fmt"
	"net/http"

	"phone-location-api/internal/errs"
)

// Result wraps either a successful payload of type T or a classified failure.
// Success is the single source of truth for which side is populated; it is
// carried explicitly because a legitimate payload can be the zero value of T.
type Result[T any] struct {
	Success      bool
	Data         T
	ErrorCode    errs.Code
	ErrorMessage string
	Metadata     map[string]any
}

// Ok builds a successful result.
func Ok[T any](data T, metadata map[string]any) Result[T] {
	return Result[T]{
		Success:  true,
		Data:     data,
		Metadata: metadata,
	}
}

// Fail builds a failed result. An empty message defaults to the code's
// description. Constructing the envelope itself never fails.
func Fail[T any](code errs.Code, message string, metadata map[string]any) Result[T] {
	if message == "" {
		message = code.Description()
	}
	return Result[T]{
		Success:      false,
		ErrorCode:    code,
		ErrorMessage: message,
		Metadata:     metadata,
	}
}

// IsRetryable reports whether the caller may retry the request. Successful
// results are never retryable; failures delegate to the taxonomy.
func (r Result[T]) IsRetryable() bool {
	if r.Success {
		return false
	}
	return r.ErrorCode.Retryable()
}

// HTTPStatus projects the result onto an HTTP status for protocol boundaries.
func (r Result[T]) HTTPStatus() int {
	if r.Success {
		return http.StatusOK
	}
	return r.ErrorCode.HTTPStatus()
}

// wireResult is the stable wire representation. The field names success,
// data, error_code, error_message, retryable and metadata are part of the
// public contract.
type wireResult[T any] struct {
	Success      bool           `json:"success"`
	Data         *T             `json:"data,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Retryable    *bool          `json:"retryable,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON serializes the envelope. On success only the data side is
// emitted (the payload is kept even when it is the zero value of T); on
// failure the error fields plus the derived retryable flag are emitted.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	wire := wireResult[T]{
		Success:  r.Success,
		Metadata: r.Metadata,
	}
	if r.Success {
		wire.Data = &r.Data
	} else {
		wire.ErrorCode = string(r.ErrorCode)
		wire.ErrorMessage = r.ErrorMessage
		retryable := r.ErrorCode.Retryable()
		wire.Retryable = &retryable
	}
	return json.Marshal(wire)
}

// UnmarshalJSON restores an envelope produced by MarshalJSON. Failures with a
// code outside the taxonomy are rejected with errs.ErrUnknownCode rather than
// mapped to a default.
func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var wire wireResult[T]
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	*r = Result[T]{
		Success:  wire.Success,
		Metadata: wire.Metadata,
	}

	if wire.Success {
		if wire.Data != nil {
			r.Data = *wire.Data
		}
		return nil
	}

	code, err := errs.FromCode(wire.ErrorCode)
	if err != nil {
		return err
	}
	r.ErrorCode = code
	r.ErrorMessage = wire.ErrorMessage
	if r.ErrorMessage == "" {
		r.ErrorMessage = code.Description()
	}
	return nil
}

// String returns a human-readable representation for logs.
func (r Result[T]) String() string {
	if r.Success {
		return fmt.Sprintf("Result{success, data=%v}", r.Data)
	}
	return fmt.Sprintf("Result{failure, code=%s, message=%q}", r.ErrorCode, r.ErrorMessage)
}
