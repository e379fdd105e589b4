package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finscope",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of analysis API endpoints",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finscope",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by analysis API endpoint and error class",
		},
		[]string{"endpoint", "class"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors)
	})
}
