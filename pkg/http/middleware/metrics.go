package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	applogger "FinScope/pkg/logger"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	size     *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finscope", Subsystem: "http", Name: "requests_total",
			Help: "API requests by route template, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "finscope", Subsystem: "http", Name: "request_duration_seconds",
			Help:    "API latency. Analysis requests dominate the upper buckets.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"route", "method", "class"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "finscope", Subsystem: "http", Name: "in_flight_requests",
			Help: "Requests currently being served.",
		}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "finscope", Subsystem: "http", Name: "response_size_bytes",
			Help:    "Response body size.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"route", "class"}),
	}
	if reg == nil {
		return m
	}
	m.requests = register(reg, m.requests)
	m.duration = register(reg, m.duration)
	m.inFlight = register(reg, m.inFlight)
	m.size = register(reg, m.size)
	return m
}

// register returns the already registered collector when the server is built twice
// in one process, as the tests do.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// Metrics records request series labelled by the route template, so
// "/api/strategies/:name" stays one series however many names are requested.
// Errors and requests slower than slow are also logged.
func Metrics(l *applogger.Logger, reg prometheus.Registerer, slow time.Duration) echo.MiddlewareFunc {
	m := newHTTPMetrics(reg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			m.inFlight.Inc()
			start := time.Now()
			if err := next(c); err != nil {
				// let echo write the error now so the status below is final
				c.Error(err)
			}
			elapsed := time.Since(start)
			m.inFlight.Dec()

			code := c.Response().Status
			class := strconv.Itoa(code/100) + "xx"
			m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
			m.duration.WithLabelValues(route, method, class).Observe(elapsed.Seconds())
			m.size.WithLabelValues(route, class).Observe(float64(c.Response().Size))

			switch {
			case code >= 500:
				l.Error("http request failed",
					applogger.String("route", route),
					applogger.Int("status", code),
					applogger.Duration("elapsed", elapsed))
			case slow > 0 && elapsed >= slow:
				l.Warn("http request slow",
					applogger.String("route", route),
					applogger.Int("status", code),
					applogger.Duration("elapsed", elapsed))
			}
			return nil
		}
	}
}
