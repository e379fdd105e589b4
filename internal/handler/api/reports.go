package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"FinScope/internal/domain/models"
	xhttp "FinScope/pkg/http"
)

// Accuracy scores due predictions for the symbol and returns its track record.
func (h *Handler) Accuracy(c echo.Context) error {
	defer observe("accuracy", time.Now())
	req := &models.AccuracyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "accuracy", verr)
	}
	if h.accuracy == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("prediction history is disabled"))
	}
	rep, err := h.accuracy.Evaluate(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "accuracy", err)
	}
	return xhttp.SuccessResponse(c, rep)
}

// Reports lists stored analysis reports for a symbol, newest first.
func (h *Handler) Reports(c echo.Context) error {
	defer observe("reports", time.Now())
	if h.reports == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("report storage is disabled"))
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.QueryParam("symbol")))
	if symbol == "" {
		return h.fail(c, "reports", models.Invalid("symbol", "required"))
	}
	to := xhttp.QueryTime(c, "to", time.Now().UTC())
	from := xhttp.QueryTime(c, "from", to.AddDate(0, 0, -30))
	limit := xhttp.QueryInt(c, "limit", 100, 1, 1000)

	rows, err := h.reports.Query(c.Request().Context(), symbol, from, to, limit)
	if err != nil {
		return h.fail(c, "reports", models.External("report_storage", err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Health reports liveness, and storage reachability when storage is configured.
func (h *Handler) Health(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if h.reports != nil {
		if err := h.reports.Health(c.Request().Context()); err != nil {
			status["status"] = "degraded"
			status["storage"] = err.Error()
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
		}
		status["storage"] = "ok"
	}
	return xhttp.SuccessResponse(c, status)
}
