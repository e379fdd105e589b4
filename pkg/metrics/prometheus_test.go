package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"FinScope/internal/domain/models"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordAnalysis("AAPL", models.Buy)
	r.RecordAnalysis("AAPL", models.Buy)
	r.RecordSinkWrite("kafka", "AAPL")
	r.RecordError("sentiment")
	r.RecordLastPrice("AAPL", 187.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.analyses.WithLabelValues("AAPL", "buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sinkWrites.WithLabelValues("kafka", "AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("sentiment")))
	assert.Equal(t, 187.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("AAPL")))
}
