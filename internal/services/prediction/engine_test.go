package prediction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
)

func TestSellInBearishMarket(t *testing.T) {
	p, err := NewEngine().Predict(Input{
		CurrentPrice:   100,
		Recommendation: models.Sell,
		Confidence:     80,
		Trend:          models.Bearish,
	})
	require.NoError(t, err)
	assert.Less(t, p.PredictedPrice, 100.0)
	assert.InDelta(t, 94.8, p.PredictedPrice, 1e-9)
	assert.Contains(t, p.RiskFactors, "Bearish market trend")
	assert.Equal(t, "30d", p.TimeFrame)
	assert.Equal(t, 80.0, p.Confidence)
	assert.LessOrEqual(t, p.Scenarios.Bearish, p.Scenarios.Base)
	assert.LessOrEqual(t, p.Scenarios.Base, p.Scenarios.Bullish)
}

func TestAdjustments(t *testing.T) {
	f := models.Float
	in := Input{
		CurrentPrice: 50,
		Indicators: models.IndicatorSnapshot{
			RSI:            f(25),
			MACD:           f(0.2),
			MACDSignal:     f(0.1),
			PrevMACD:       f(0.05),
			PrevMACDSignal: f(0.1),
			BollingerLower: f(49.8),
			BollingerUpper: f(60),
		},
		Ratios:         models.FinancialRatios{PE: f(12), EarningsGrowth: f(0.2)},
		Recommendation: models.Buy,
		Confidence:     100,
		Trend:          models.Bullish,
		TimeFrame:      "7d",
	}
	p, err := NewEngine().Predict(in)
	require.NoError(t, err)

	names := map[string]float64{}
	for _, a := range p.Adjustments {
		names[a.Name] = a.Percent
	}
	assert.Equal(t, 5.0, names["base buy"])
	assert.Equal(t, 2.0, names["rsi oversold"])
	assert.Equal(t, 1.5, names["macd bullish crossover"])
	assert.Equal(t, 1.0, names["near lower band"])
	assert.Equal(t, 1.0, names["low p/e"])
	assert.Equal(t, 1.0, names["earnings growth"])
	assert.Equal(t, 1.5, names["bullish market"])
	// 13% on 50
	assert.InDelta(t, 56.5, p.PredictedPrice, 1e-9)
	assert.Equal(t, 95.0, p.Confidence)
	assert.Contains(t, p.Reasoning, "rsi oversold +2.00%")
	assert.Contains(t, p.RiskFactors, "RSI oversold at 25.0")
}

func TestPredictedPriceStaysPositive(t *testing.T) {
	f := models.Float
	p, err := NewEngine(WithScenarioBand(0.5)).Predict(Input{
		CurrentPrice:   0.004,
		Indicators:     models.IndicatorSnapshot{RSI: f(90)},
		Ratios:         models.FinancialRatios{PE: f(-2), EarningsGrowth: f(-0.5)},
		Recommendation: models.StrongSell,
		Confidence:     100,
		Trend:          models.Bearish,
	})
	require.NoError(t, err)
	assert.Greater(t, p.PredictedPrice, 0.0)
	assert.Greater(t, p.Scenarios.Bearish, 0.0)
	assert.LessOrEqual(t, p.Scenarios.Bearish, p.Scenarios.Base)
	assert.LessOrEqual(t, p.Scenarios.Base, p.Scenarios.Bullish)
}

func TestInvalidInput(t *testing.T) {
	e := NewEngine()
	cases := []struct {
		in    Input
		field string
	}{
		{Input{CurrentPrice: 0, Recommendation: models.Buy, Confidence: 50}, "current_price"},
		{Input{CurrentPrice: math.NaN(), Recommendation: models.Buy, Confidence: 50}, "current_price"},
		{Input{CurrentPrice: 10, Recommendation: models.Buy, Confidence: 120}, "confidence"},
		{Input{CurrentPrice: 10, Recommendation: "moon", Confidence: 50}, "recommendation"},
		{Input{CurrentPrice: 10, Recommendation: models.Buy, Confidence: 50, Trend: "sideways"}, "market_trend"},
	}
	for _, c := range cases {
		_, err := e.Predict(c.in)
		var ie *models.InvalidInputError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, c.field, ie.Field)
	}
}

func TestRiskFactorsEmptyWhenCalm(t *testing.T) {
	risks := RiskFactors(Input{CurrentPrice: 10, Recommendation: models.Hold, Confidence: 70, Trend: models.Neutral})
	assert.Empty(t, risks)

	f := models.Float
	risks = RiskFactors(Input{
		Indicators: models.IndicatorSnapshot{RSI: f(75), Volatility: f(0.6)},
		Ratios:     models.FinancialRatios{PE: f(40), DebtToEquity: f(2.5)},
		Confidence: 30,
	})
	assert.Len(t, risks, 5)
}
