package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/services/prediction"
	"FinScope/internal/usecase"
	xhttp "FinScope/pkg/http"
)

// Analyze runs the full pipeline. GET reads the query string, POST a JSON body.
func (h *Handler) Analyze(c echo.Context) error {
	defer observe("analyze", time.Now())
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "analyze", verr)
	}
	report, err := h.analysis.Analyze(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "analyze", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *Handler) Indicators(c echo.Context) error {
	defer observe("indicators", time.Now())
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "indicators", verr)
	}
	res, err := h.market.Indicators(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "indicators", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Fundamentals(c echo.Context) error {
	defer observe("fundamentals", time.Now())
	req := &models.FundamentalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "fundamentals", verr)
	}
	res, err := h.market.Fundamentals(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "fundamentals", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Prices returns stored bars. from/to accept RFC3339 or unix seconds; the default window
// is the last year.
func (h *Handler) Prices(c echo.Context) error {
	defer observe("prices", time.Now())
	now := time.Now().UTC()
	to := xhttp.QueryTime(c, "to", now)
	from := xhttp.QueryTime(c, "from", to.AddDate(-1, 0, 0))

	res, err := h.market.GetPrices(c.Request().Context(), usecase.GetPricesParams{
		Symbol:   c.QueryParam("symbol"),
		From:     from,
		To:       to,
		Interval: domrepo.NormalizeInterval(c.QueryParam("interval")),
		Limit:    xhttp.QueryInt(c, "limit", 0, 0, 100000),
	})
	if err != nil {
		return h.fail(c, "prices", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Recommend blends caller supplied component scores.
func (h *Handler) Recommend(c echo.Context) error {
	defer observe("recommend", time.Now())
	req := &models.RecommendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "recommend", verr)
	}
	res, err := h.rec.Evaluate(models.AnalysisScores{
		Technical:   req.Technical,
		Fundamental: req.Fundamental,
		Sentiment:   req.Sentiment,
		Macro:       req.Macro,
	})
	if err != nil {
		return h.fail(c, "recommend", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Predict projects a price from a caller supplied recommendation and context.
func (h *Handler) Predict(c echo.Context) error {
	defer observe("predict", time.Now())
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "predict", verr)
	}
	in := prediction.Input{
		CurrentPrice:   req.CurrentPrice,
		Recommendation: models.Recommendation(req.Recommendation),
		Confidence:     req.Confidence,
		Trend:          models.MarketTrend(req.Trend),
		TimeFrame:      req.TimeFrame,
	}
	if req.Indicators != nil {
		in.Indicators = *req.Indicators
	}
	if req.Ratios != nil {
		in.Ratios = *req.Ratios
	}
	res, err := h.pred.Predict(in)
	if err != nil {
		return h.fail(c, "predict", err)
	}
	return xhttp.SuccessResponse(c, res)
}
