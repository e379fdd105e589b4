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

func TestCorrect(t *testing.T) {
	cases := []struct {
		action  models.Action
		current float64
		actual  float64
		want    bool
	}{
		{models.ActionBuy, 100, 101, true},
		{models.ActionBuy, 100, 100, false},
		{models.ActionSell, 100, 99, true},
		{models.ActionSell, 100, 105, false},
		{models.ActionHold, 100, 101.5, true},
		{models.ActionHold, 100, 98.5, true},
		{models.ActionHold, 100, 102.5, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Correct(c.action, c.current, c.actual), "%s %v->%v", c.action, c.current, c.actual)
	}
}

func seedHistory(h *fakeHistory) {
	add := func(id string, action models.Action, gen time.Time, horizon int, current, predicted float64) {
		_ = h.Save(context.Background(), &models.PredictionRecord{
			ID: id, Symbol: "AAPL", GeneratedAt: gen, HorizonDays: horizon,
			Action: action, CurrentPrice: current, PredictedPrice: predicted,
		})
	}
	add("buy", models.ActionBuy, day0, 30, 100, 110)
	add("sell", models.ActionSell, day0, 30, 100, 90)
	add("hold", models.ActionHold, day0, 10, 109, 109)
	add("late", models.ActionBuy, day0.AddDate(0, 0, 115), 30, 200, 210)
}

func TestAccuracyEvaluate(t *testing.T) {
	prices := newFakePrices()
	prices.bars["AAPL"] = series(120, 100, 1)
	h := newFakeHistory()
	seedHistory(h)

	uc := NewAccuracyUseCase(h, prices, metrics.Nop{}, nil)
	uc.now = func() time.Time { return day0.AddDate(0, 0, 200) }

	rep, err := uc.Evaluate(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", rep.Symbol)
	assert.Equal(t, 3, rep.NewlyEvaluated)
	assert.Equal(t, 1, rep.Pending, "no bar after the due date yet")
	assert.Equal(t, 3, rep.Evaluated)
	assert.Equal(t, 2, rep.Correct)
	assert.Equal(t, 0.6667, rep.HitRate)
	assert.Equal(t, 15.69, rep.MeanAbsPctError)
	assert.Equal(t, 1.0, rep.ByAction[models.ActionBuy])
	assert.Equal(t, 0.0, rep.ByAction[models.ActionSell])
	assert.Equal(t, 1.0, rep.ByAction[models.ActionHold])

	require.NotNil(t, h.recs["buy"].ActualPrice)
	assert.Equal(t, 130.0, *h.recs["buy"].ActualPrice)

	again, err := uc.Evaluate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0, again.NewlyEvaluated)
	assert.Equal(t, 3, again.Evaluated)
}

func TestAccuracyEvaluatePriceFailure(t *testing.T) {
	prices := newFakePrices()
	prices.err = errors.New("timeout")
	h := newFakeHistory()
	seedHistory(h)

	uc := NewAccuracyUseCase(h, prices, metrics.Nop{}, nil)
	uc.now = func() time.Time { return day0.AddDate(0, 0, 200) }

	rep, err := uc.Evaluate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 4, rep.EvaluationsFailed)
	assert.Equal(t, 0, rep.Evaluated)
	assert.Zero(t, rep.HitRate)
	assert.Nil(t, rep.ByAction)
}

func TestAccuracyEvaluateRequiresSymbol(t *testing.T) {
	uc := NewAccuracyUseCase(newFakeHistory(), newFakePrices(), metrics.Nop{}, nil)
	_, err := uc.Evaluate(context.Background(), " ")
	assert.True(t, models.IsInvalidInput(err))
}
