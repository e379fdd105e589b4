package api

import (
	"time"

	"github.com/labstack/echo/v4"

	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/service/metrics"
	"FinScope/internal/service/ratelimit"
	"FinScope/internal/services/prediction"
	"FinScope/internal/services/recommendation"
	"FinScope/internal/usecase"
	xhttp "FinScope/pkg/http"
	applogger "FinScope/pkg/logger"
	"FinScope/pkg/queue"
)

// Handler serves the analysis HTTP API.
type Handler struct {
	logger   *applogger.Logger
	analysis *usecase.AnalysisUseCase
	market   *usecase.MarketDataUseCase
	backtest *usecase.BacktestUseCase
	accuracy *usecase.AccuracyUseCase
	rec      *recommendation.Engine
	pred     *prediction.Engine

	reports domrepo.ReportStorage
	jobs    queue.Publisher
	rl      *ratelimit.Limiter
}

type Option func(*Handler)

// WithReportStorage enables the stored report query endpoint.
func WithReportStorage(s domrepo.ReportStorage) Option { return func(h *Handler) { h.reports = s } }

// WithJobQueue lets backtests run asynchronously on the job queue.
func WithJobQueue(q queue.Publisher) Option { return func(h *Handler) { h.jobs = q } }

// WithRateLimiter limits requests per client and route.
func WithRateLimiter(rl *ratelimit.Limiter) Option { return func(h *Handler) { h.rl = rl } }

func NewHandler(
	lgr *applogger.Logger,
	analysis *usecase.AnalysisUseCase,
	market *usecase.MarketDataUseCase,
	backtest *usecase.BacktestUseCase,
	accuracy *usecase.AccuracyUseCase,
	rec *recommendation.Engine,
	pred *prediction.Engine,
	opts ...Option,
) *Handler {
	metrics.Register()
	if lgr == nil {
		lgr = applogger.Nop()
	}
	h := &Handler{
		logger:   lgr,
		analysis: analysis,
		market:   market,
		backtest: backtest,
		accuracy: accuracy,
		rec:      rec,
		pred:     pred,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	if h.rl != nil {
		g.Use(h.rateLimit)
	}
	g.GET("/analyze", h.Analyze)
	g.POST("/analyze", h.Analyze)
	g.GET("/indicators", h.Indicators)
	g.GET("/fundamentals", h.Fundamentals)
	g.GET("/prices", h.Prices)
	g.POST("/recommend", h.Recommend)
	g.POST("/predict", h.Predict)

	g.POST("/backtest", h.Backtest)
	g.GET("/strategies", h.Strategies)
	g.GET("/strategies/:name", h.Strategy)
	g.POST("/strategies", h.SaveStrategy)

	g.GET("/accuracy", h.Accuracy)
	g.GET("/reports", h.Reports)
}

func (h *Handler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.rl.Allow(c.RealIP() + ":" + c.Path()) {
			metrics.APIErrors.WithLabelValues(c.Path(), "rate_limited").Inc()
			h.logger.Warn("api rate limited", applogger.String("remote", c.RealIP()), applogger.String("route", c.Path()))
			return xhttp.TooManyRequestsResponse(c)
		}
		return next(c)
	}
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

var _ xhttp.Handler = (*Handler)(nil)
