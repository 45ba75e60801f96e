package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"phone-location-api/pkg/i18n"
	"phone-location-api/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// ------------------------
// Request ID Middleware
// ------------------------

// RequestIDMiddleware assigns each request an ID, honouring an
// X-Request-ID header when the caller supplies one.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			ctx := context.WithValue(c.Request().Context(), requestIDKey, requestID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(c)
		}
	}
}

// GetRequestID returns the request ID stored in the context, if any.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ------------------------
// I18n Middleware
// ------------------------

func I18nMiddleware(localizer *i18n.Localizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := detectLanguage(c, localizer)
			ctx := localizer.SetLanguageInContext(c.Request().Context(), lang)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set("Content-Language", lang)
			return next(c)
		}
	}
}

func detectLanguage(c echo.Context, localizer *i18n.Localizer) string {
	// Priority: query -> header -> Accept-Language -> default
	if lang := c.QueryParam("lang"); localizer.IsLanguageSupported(lang) {
		return lang
	}
	if lang := c.Request().Header.Get("X-Language"); localizer.IsLanguageSupported(lang) {
		return lang
	}
	if lang := localizer.ParseAcceptLanguage(c.Request().Header.Get("Accept-Language")); localizer.IsLanguageSupported(lang) {
		return lang
	}
	return localizer.DefaultLanguage()
}

// ------------------------
// CORS Middleware
// ------------------------

func CORSMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			setCORSHeaders(c)
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

func setCORSHeaders(c echo.Context) {
	c.Response().Header().Set("Access-Control-Allow-Origin", "*")
	c.Response().Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Response().Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Language, X-Request-ID, Accept-Language")
	c.Response().Header().Set("Access-Control-Expose-Headers", "Content-Language, X-Request-ID")
	c.Response().Header().Set("Access-Control-Max-Age", "86400")
}

// ------------------------
// Request Size Limit Middleware
// ------------------------

// RequestSizeLimitMiddleware limits the size of incoming requests
func RequestSizeLimitMiddleware(maxSize int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if contentLength := c.Request().ContentLength; contentLength > maxSize {
				return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
					"error":   "Request too large",
					"message": fmt.Sprintf("Request size exceeds limit of %d bytes", maxSize),
				})
			}
			c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxSize)
			return next(c)
		}
	}
}

// ------------------------
// IP Rate Limit Middleware
// ------------------------

// IPRateLimitMiddleware provides basic rate limiting per IP. This guards
// the HTTP edge only; upstream provider rate limits surface as
// RATE_LIMITED lookup outcomes instead.
func IPRateLimitMiddleware(requestsPerMinute int) echo.MiddlewareFunc {
	rateLimiter := make(map[string][]time.Time)
	var mu sync.Mutex

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientIP := c.RealIP()
			now := time.Now()
			windowStart := now.Add(-time.Minute)

			mu.Lock()
			if requests, exists := rateLimiter[clientIP]; exists {
				var validRequests []time.Time
				for _, reqTime := range requests {
					if reqTime.After(windowStart) {
						validRequests = append(validRequests, reqTime)
					}
				}
				rateLimiter[clientIP] = validRequests
			}

			if len(rateLimiter[clientIP]) >= requestsPerMinute {
				mu.Unlock()
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Rate limit exceeded",
					"message": fmt.Sprintf("Maximum %d requests per minute allowed", requestsPerMinute),
				})
			}

			rateLimiter[clientIP] = append(rateLimiter[clientIP], now)
			mu.Unlock()

			return next(c)
		}
	}
}

// ------------------------
// Error Handler Middleware
// ------------------------

// ErrorHandlerMiddleware renders uncaught errors. Lookup outcomes never
// reach here; they are always rendered by the handler with their wire
// shape. This covers routing errors and handler-level failures.
func ErrorHandlerMiddleware() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		switch e := err.(type) {
		case *echo.HTTPError:
			sendErrorResponse(c, e.Code, e.Message)
		default:
			logger.Debug("Unhandled error", zap.Any("error", err))
			sendErrorResponse(c, http.StatusInternalServerError, "Internal Server Error")
		}
	}
}

// sendErrorResponse sends a generic error response
func sendErrorResponse(c echo.Context, code int, message interface{}) {
	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		if err := c.NoContent(code); err != nil {
			c.Logger().Error(err)
		}
		return
	}
	if err := c.JSON(code, map[string]interface{}{"error": message}); err != nil {
		c.Logger().Error(err)
	}
}
