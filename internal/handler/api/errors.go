package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"FinScope/internal/domain/models"
	"FinScope/internal/service/metrics"
	xhttp "FinScope/pkg/http"
	applogger "FinScope/pkg/logger"
)

// toAppError maps domain errors onto HTTP errors and returns the metrics class.
func toAppError(err error) (*xhttp.AppError, string) {
	var (
		ie *models.InvalidInputError
		ee *models.ExternalServiceError
	)
	switch {
	case errors.As(err, &ie):
		return xhttp.NewAppError("ERR_INVALID_INPUT", ie.Field, ie.Reason, http.StatusBadRequest), "invalid_input"
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError(err.Error()), "not_found"
	case errors.As(err, &ee):
		return xhttp.BadGatewayError(ee.Error()).WithParam("service", ee.Service), "upstream"
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout), "timeout"
	default:
		return xhttp.InternalError("internal error").WithError(err), "internal"
	}
}

func (h *Handler) fail(c echo.Context, endpoint string, err error) error {
	appErr, class := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, class).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" failed", applogger.String("class", class), applogger.Error(err))
	} else {
		h.logger.Debug(endpoint+" rejected", applogger.String("class", class), applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *Handler) invalid(c echo.Context, endpoint string, verr []xhttp.ValidationError) error {
	metrics.APIErrors.WithLabelValues(endpoint, "validation").Inc()
	return xhttp.BadRequestResponse(c, verr)
}
