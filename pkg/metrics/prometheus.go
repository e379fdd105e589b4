package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analyses    *prometheus.CounterVec
	sinkWrites  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
	backtests   *prometheus.HistogramVec
}

// New creates a recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder whose collectors are registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finscope_analyses_total",
				Help: "Completed analyses by symbol and recommendation",
			},
			[]string{"symbol", "recommendation"},
		),
		sinkWrites: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finscope_sink_writes_total",
				Help: "Reports written to a sink backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finscope_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finscope_last_price",
				Help: "Last analysed price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finscope_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backtests: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finscope_backtest_total_return",
				Help:    "Total return of backtest runs, as a fraction",
				Buckets: []float64{-0.5, -0.2, -0.1, -0.05, 0, 0.05, 0.1, 0.2, 0.5, 1},
			},
			[]string{"strategy"},
		),
	}
}

// RecordAnalysis counts a finished analysis.
func (r *Recorder) RecordAnalysis(symbol string, rec models.Recommendation) {
	r.analyses.WithLabelValues(symbol, string(rec)).Inc()
}

// RecordSinkWrite records a report written to a backend.
func (r *Recorder) RecordSinkWrite(backend, symbol string) {
	r.sinkWrites.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordBacktest observes the total return of one run.
func (r *Recorder) RecordBacktest(strategy string, totalReturn float64) {
	r.backtests.WithLabelValues(strategy).Observe(totalReturn)
}

// Nop discards everything. Used by the CLI and tests.
type Nop struct{}

func (Nop) RecordAnalysis(string, models.Recommendation) {}
func (Nop) RecordSinkWrite(string, string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLastPrice(string, float64) {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordBacktest(string, float64) {}

var (
	_ domrepo.Metrics = (*Recorder)(nil)
	_ domrepo.Metrics = Nop{}
)
