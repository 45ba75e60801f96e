package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/errs"
	"phone-location-api/internal/result"
	"phone-location-api/internal/usecase"
	"phone-location-api/pkg/i18n"
	"phone-location-api/pkg/validator"

	"github.com/labstack/echo/v4"
)

// Limits for history and stats queries
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
	DefaultStatsWindow  = time.Hour
	MaxStatsWindow      = 24 * time.Hour
)

// HealthProbe reports whether a dependency is reachable. A nil probe marks
// the dependency as not configured.
type HealthProbe func(ctx context.Context) error

// LookupHandler handles HTTP requests for phone number lookups
type LookupHandler struct {
	useCase   *usecase.LookupUsecase
	validator validator.Validator
	localizer *i18n.Localizer
	version   string
	probes    map[string]HealthProbe
}

// NewLookupHandler creates a new lookup handler
func NewLookupHandler(
	useCase *usecase.LookupUsecase,
	v validator.Validator,
	localizer *i18n.Localizer,
	version string,
	probes map[string]HealthProbe,
) *LookupHandler {
	return &LookupHandler{
		useCase:   useCase,
		validator: v,
		localizer: localizer,
		version:   version,
		probes:    probes,
	}
}

// RegisterRoutes registers all lookup routes
func (h *LookupHandler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")

	lookups := api.Group("/lookups")
	lookups.POST("", h.Lookup)
	lookups.GET("/:number", h.LookupByPath)
	lookups.GET("/:number/history", h.History)

	api.GET("/stats/failures", h.FailureStats)
	api.GET("/health", h.HealthCheck)
}

// Lookup performs a phone number location lookup
// @Summary Look up a phone number's location
// @Description Resolve the province, city, and carrier of a CN phone number
// @Tags lookups
// @Accept json
// @Produce json
// @Param lookup body LookupRequestDTO true "Lookup request"
// @Success 200 {object} result.Result[domain.PhoneLocation]
// @Failure 400 {object} result.Result[domain.PhoneLocation]
// @Router /api/v1/lookups [post]
func (h *LookupHandler) Lookup(c echo.Context) error {
	var req LookupRequestDTO
	if err := c.Bind(&req); err != nil {
		res := result.Fail[domain.PhoneLocation](errs.CodeInvalidInput, "request body is not valid JSON", nil)
		return h.respond(c, res)
	}

	if validationErrors, _ := h.validator.ValidateStruct(&req); len(validationErrors) > 0 {
		res := result.Fail[domain.PhoneLocation](errs.CodeValidationFailed, validationErrors[0].Message, map[string]any{
			"field": validationErrors[0].Field,
		})
		return h.respond(c, res)
	}

	return h.lookup(c, req.ToLookupQuery())
}

// LookupByPath performs a lookup with the phone number in the path
// @Summary Look up a phone number's location
// @Tags lookups
// @Produce json
// @Param number path string true "Phone number"
// @Param timeout_seconds query int false "Per-request timeout in seconds"
// @Success 200 {object} result.Result[domain.PhoneLocation]
// @Router /api/v1/lookups/{number} [get]
func (h *LookupHandler) LookupByPath(c echo.Context) error {
	query := domain.LookupQuery{PhoneNumber: c.Param("number")}

	if raw := c.QueryParam("timeout_seconds"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			res := result.Fail[domain.PhoneLocation](errs.CodeInvalidInput, "timeout_seconds must be a positive integer", nil)
			return h.respond(c, res)
		}
		query.Timeout = time.Duration(seconds) * time.Second
	}

	return h.lookup(c, query)
}

func (h *LookupHandler) lookup(c echo.Context, query domain.LookupQuery) error {
	ctx := c.Request().Context()
	res, requestID := h.useCase.Lookup(ctx, GetRequestID(ctx), query)
	c.Response().Header().Set(echo.HeaderXRequestID, requestID)
	return h.respond(c, res)
}

// respond renders a lookup outcome using its canonical wire shape and
// HTTP status projection. For non-default languages the detailed English
// message is replaced by the localized description of the error code.
func (h *LookupHandler) respond(c echo.Context, res result.Result[domain.PhoneLocation]) error {
	if !res.Success && h.localizer != nil {
		lang := h.localizer.GetLanguageFromContext(c.Request().Context())
		if lang != h.localizer.DefaultLanguage() {
			res.ErrorMessage = h.localizer.LocalizeCode(lang, string(res.ErrorCode), res.ErrorMessage)
		}
	}
	return c.JSON(res.HTTPStatus(), res)
}

// History returns the audit trail for a phone number
// @Summary Get lookup history for a phone number
// @Tags lookups
// @Produce json
// @Param number path string true "Phone number"
// @Param limit query int false "Maximum records to return" default(10)
// @Success 200 {object} LookupHistoryResponseDTO
// @Router /api/v1/lookups/{number}/history [get]
func (h *LookupHandler) History(c echo.Context) error {
	number := c.Param("number")

	limit := DefaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	records, err := h.useCase.History(c.Request().Context(), number, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load lookup history")
	}

	return c.JSON(http.StatusOK, FromLookupRecords(number, records))
}

// FailureStats tallies recent failed lookups per error code
// @Summary Failed lookup counts per error code
// @Tags stats
// @Produce json
// @Param window_seconds query int false "Window size in seconds" default(3600)
// @Success 200 {object} FailureStatsResponseDTO
// @Router /api/v1/stats/failures [get]
func (h *LookupHandler) FailureStats(c echo.Context) error {
	window := DefaultStatsWindow
	if raw := c.QueryParam("window_seconds"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "window_seconds must be a positive integer")
		}
		window = time.Duration(seconds) * time.Second
	}
	if window > MaxStatsWindow {
		window = MaxStatsWindow
	}

	counts, err := h.useCase.FailureCounts(c.Request().Context(), window)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load failure stats")
	}

	response := &FailureStatsResponseDTO{
		WindowSeconds: int(window / time.Second),
		Counts:        make(map[string]int64, len(counts)),
	}
	for code, count := range counts {
		response.Counts[string(code)] = count
	}
	return c.JSON(http.StatusOK, response)
}

// HealthCheck returns the health status of the service
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponseDTO
// @Router /api/v1/health [get]
func (h *LookupHandler) HealthCheck(c echo.Context) error {
	services := make(map[string]string, len(h.probes))
	for name, probe := range h.probes {
		switch {
		case probe == nil:
			services[name] = "not_configured"
		case probe(c.Request().Context()) != nil:
			services[name] = "unavailable"
		default:
			services[name] = "healthy"
		}
	}
	return c.JSON(http.StatusOK, NewHealthResponse(h.version, services))
}
