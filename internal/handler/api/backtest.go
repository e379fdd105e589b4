package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"FinScope/internal/domain/models"
	"FinScope/internal/usecase"
	xhttp "FinScope/pkg/http"
	applogger "FinScope/pkg/logger"
)

type backtestQueued struct {
	Status  string `json:"status"`
	JobType string `json:"job_type"`
	Symbol  string `json:"symbol"`
}

// Backtest replays the requested strategies. With async set and a job queue configured
// the request is queued and answered with 202.
func (h *Handler) Backtest(c echo.Context) error {
	defer observe("backtest", time.Now())
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "backtest", verr)
	}
	ctx := c.Request().Context()

	if req.Async && h.jobs != nil {
		if err := h.jobs.PublishMessage(ctx, usecase.BacktestJobType, req); err != nil {
			h.logger.Error("backtest enqueue failed", applogger.String("symbol", req.Symbol), applogger.Error(err))
			return h.fail(c, "backtest", models.External("queue", err))
		}
		return xhttp.AcceptedResponse(c, backtestQueued{Status: "queued", JobType: usecase.BacktestJobType, Symbol: req.Symbol})
	}

	out, err := h.backtest.Run(ctx, *req)
	if err != nil {
		return h.fail(c, "backtest", err)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *Handler) Strategies(c echo.Context) error {
	defs, err := h.backtest.Strategies(c.Request().Context())
	if err != nil {
		return h.fail(c, "strategies", err)
	}
	return xhttp.ListResponse(c, defs, int64(len(defs)))
}

func (h *Handler) Strategy(c echo.Context) error {
	def, err := h.backtest.Strategy(c.Request().Context(), c.Param("name"))
	if err != nil {
		return h.fail(c, "strategy", err)
	}
	return xhttp.SuccessResponse(c, def)
}

// SaveStrategy stores a definition once it compiles.
func (h *Handler) SaveStrategy(c echo.Context) error {
	var def models.StrategyDefinition
	if err := c.Bind(&def); err != nil {
		return h.invalid(c, "save_strategy", []xhttp.ValidationError{{Code: "ERR_BIND", Message: err.Error()}})
	}
	if err := h.backtest.SaveStrategy(c.Request().Context(), def); err != nil {
		return h.fail(c, "save_strategy", err)
	}
	return xhttp.CreatedResponse(c, def)
}
