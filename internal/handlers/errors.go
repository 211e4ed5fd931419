package handlers

import (
	"context"
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/comisiones-api/internal/cache"
	"github.com/sjperalta/comisiones-api/internal/extract"
	"github.com/sjperalta/comisiones-api/internal/parsers"
	"github.com/sjperalta/comisiones-api/internal/services"
	"github.com/sjperalta/comisiones-api/pkg/logger"
)

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, parsers.ErrUnknownInsurer),
		errors.Is(err, services.ErrEmptyFile),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrNotAgentCodes),
		errors.Is(err, services.ErrInvalidPercent),
		errors.Is(err, services.ErrInvalidAccountType):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidFortnightState),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrFortnightNotPaid),
		errors.Is(err, services.ErrItemNotPending),
		errors.Is(err, cache.ErrLockNotObtained):
		return http.StatusConflict
	case errors.Is(err, parsers.ErrNoRows),
		errors.Is(err, parsers.ErrWrongFormat),
		errors.Is(err, extract.ErrExtractionFailed),
		errors.Is(err, services.ErrZeroBalance),
		errors.Is(err, services.ErrNoCommissionAvailable),
		errors.Is(err, services.ErrAmountExceedsBalance),
		errors.Is(err, services.ErrBrokerMismatch),
		errors.Is(err, services.ErrBrokerInactive),
		errors.Is(err, services.ErrNoDraftFortnight):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body; server errors are logged and sent to Sentry
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var perr *parsers.ParseError
	if errors.As(err, &perr) {
		body["insurer"] = perr.Insurer
		body["snippet"] = perr.Snippet
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "path", c.FullPath(), "error", err)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}
	c.JSON(status, body)
}
