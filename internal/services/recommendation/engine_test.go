package recommendation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
)

func newDefault(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultWeights())
	require.NoError(t, err)
	return e
}

func TestStrongBuyWhenAllHigh(t *testing.T) {
	res, err := newDefault(t).Evaluate(models.AnalysisScores{Technical: 0.9, Fundamental: 0.9, Sentiment: 0.9, Macro: 0.9})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, res.Overall.Score, 1e-9)
	assert.Equal(t, models.StrongBuy, res.Recommendation)
	assert.Equal(t, models.ActionBuy, res.Action)
	assert.Equal(t, models.RiskHigh, res.RiskLevel)
	assert.InDelta(t, 0.9, res.Overall.Confidence, 1e-9)
	assert.Contains(t, res.Reasoning, "Bullish: technical 0.90")
}

func TestInvalidScoreNamesField(t *testing.T) {
	e := newDefault(t)
	for _, s := range []models.AnalysisScores{
		{Technical: 0.5, Fundamental: 1.2, Sentiment: 0.5, Macro: 0.5},
		{Technical: 0.5, Fundamental: 0.5, Sentiment: math.NaN(), Macro: 0.5},
	} {
		_, err := e.Evaluate(s)
		var ie *models.InvalidInputError
		require.ErrorAs(t, err, &ie)
		assert.NotEqual(t, "technical", ie.Field)
	}
}

func TestWeightsValidation(t *testing.T) {
	_, err := NewEngine(Weights{Technical: 0.5, Fundamental: 0.5, Sentiment: 0.5})
	assert.True(t, models.IsInvalidInput(err))

	_, err = NewEngine(Weights{Technical: 1.5, Fundamental: -0.5})
	assert.True(t, models.IsInvalidInput(err))

	e, err := NewEngine(Weights{Technical: 1})
	require.NoError(t, err)
	res, err := e.Evaluate(models.AnalysisScores{Technical: 0.1, Fundamental: 1, Sentiment: 1, Macro: 1})
	require.NoError(t, err)
	assert.Equal(t, models.StrongSell, res.Recommendation)
}

func TestThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  models.Recommendation
	}{
		{0, models.StrongSell},
		{0.2, models.StrongSell},
		{0.21, models.Sell},
		{0.4, models.Sell},
		{0.41, models.Hold},
		{0.5, models.Hold},
		{0.59, models.Hold},
		{0.6, models.Buy},
		{0.79, models.Buy},
		{0.8, models.StrongBuy},
		{1, models.StrongBuy},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FromScore(c.score), "score %v", c.score)
	}
}

func TestRecommendationMonotonic(t *testing.T) {
	prev := FromScore(0).Rank()
	for i := 1; i <= 1000; i++ {
		r := FromScore(float64(i) / 1000).Rank()
		assert.GreaterOrEqual(t, r, prev)
		prev = r
	}
}

func TestOverallIsConvex(t *testing.T) {
	e := newDefault(t)
	grid := []float64{0, 0.13, 0.5, 0.77, 1}
	for _, a := range grid {
		for _, b := range grid {
			s := models.AnalysisScores{Technical: a, Fundamental: b, Sentiment: a, Macro: b}
			res, err := e.Evaluate(s)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.Overall.Score, math.Min(a, b)-1e-12)
			assert.LessOrEqual(t, res.Overall.Score, math.Max(a, b)+1e-12)
			assert.GreaterOrEqual(t, res.Overall.Confidence, 0.0)
			assert.LessOrEqual(t, res.Overall.Confidence, 1.0)
		}
	}
}

func TestDisagreementLowersConfidence(t *testing.T) {
	e := newDefault(t)
	agree, _ := e.Evaluate(models.AnalysisScores{Technical: 0.5, Fundamental: 0.5, Sentiment: 0.5, Macro: 0.5})
	split, _ := e.Evaluate(models.AnalysisScores{Technical: 1, Fundamental: 0, Sentiment: 1, Macro: 0})
	assert.Equal(t, models.Hold, split.Recommendation)
	assert.Less(t, split.Overall.Confidence, agree.Overall.Confidence)
	assert.Contains(t, split.RiskWarning, "disagree")
	assert.Equal(t, models.RiskLow, agree.RiskLevel)
}

func TestSentimentScore(t *testing.T) {
	assert.Equal(t, 0.8, SentimentScore(models.Bullish))
	assert.Equal(t, 0.2, SentimentScore(models.Bearish))
	assert.Equal(t, 0.5, SentimentScore(models.Neutral))
}
