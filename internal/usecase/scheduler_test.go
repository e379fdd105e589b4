package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
	"FinScope/pkg/metrics"
)

func TestSchedulerRegister(t *testing.T) {
	s := NewScheduler(&fakeSubmitter{}, nil, nil, []string{"AAPL"}, nil)
	assert.Error(t, s.Register("every tuesday", ""))

	s = NewScheduler(&fakeSubmitter{}, nil, nil, []string{"AAPL"}, nil)
	require.NoError(t, s.Register("*/5 * * * *", "0 22 * * *"))
	assert.Len(t, s.cron.Entries(), 1, "ingest job needs ingest or accuracy")

	acc := NewAccuracyUseCase(newFakeHistory(), newFakePrices(), metrics.Nop{}, nil)
	s = NewScheduler(&fakeSubmitter{}, nil, acc, []string{"AAPL"}, nil)
	require.NoError(t, s.Register("*/5 * * * *", "0 22 * * *"))
	assert.Len(t, s.cron.Entries(), 2)

	s.Start(context.Background())
	s.Stop()
}

func TestSchedulerRunAnalysis(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewScheduler(sub, nil, nil, []string{"AAPL", "MSFT"}, nil)
	s.RunAnalysis()

	require.Len(t, sub.reqs, 2)
	assert.Equal(t, "AAPL", sub.reqs[0].Symbol)
	assert.Equal(t, "MSFT", sub.reqs[1].Symbol)

	sub.err = errors.New("buffer full")
	assert.NotPanics(t, s.RunAnalysis)
}

func TestSchedulerRunIngestScoresPredictions(t *testing.T) {
	prices := newFakePrices()
	prices.bars["AAPL"] = series(60, 100, 1)
	w := &fakeWriter{bars: map[string]int{}}
	ing := NewIngestUseCase(fakeSource{prices, &fakeFunds{}}, w, metrics.Nop{}, nil)
	ing.now = func() time.Time { return day0.AddDate(0, 0, 59) }

	h := newFakeHistory()
	require.NoError(t, h.Save(context.Background(), &models.PredictionRecord{
		ID: "p1", Symbol: "AAPL", GeneratedAt: day0, HorizonDays: 7,
		Action: models.ActionBuy, CurrentPrice: 100, PredictedPrice: 105,
	}))
	acc := NewAccuracyUseCase(h, prices, metrics.Nop{}, nil)
	acc.now = func() time.Time { return day0.AddDate(0, 0, 59) }

	s := NewScheduler(&fakeSubmitter{}, ing, acc, []string{"AAPL"}, nil)
	s.RunIngest()

	assert.Equal(t, 11, w.bars["AAPL"])
	require.NotNil(t, h.recs["p1"].Correct)
	assert.True(t, *h.recs["p1"].Correct)
}
