package backtest

import "FinScope/internal/domain/models"

func th(v float64) *float64 { return &v }

// Builtins returns fresh copies of the built-in strategy definitions.
func Builtins() []models.StrategyDefinition {
	return []models.StrategyDefinition{
		{
			Name:        "rsi_reversion",
			Description: "Buy when RSI drops below 30, sell when it rises above 70.",
			Entry:       models.RuleSpec{Kind: "rsi_below", Threshold: th(30)},
			Exit:        models.RuleSpec{Kind: "rsi_above", Threshold: th(70)},
		},
		{
			Name:        "sma_crossover",
			Description: "Hold while the short moving average is above the long one.",
			Entry:       models.RuleSpec{Kind: "sma_short_above_long"},
			Exit:        models.RuleSpec{Kind: "sma_short_below_long"},
		},
		{
			Name:        "macd_momentum",
			Description: "Buy on a MACD bullish crossover, sell once MACD falls under its signal.",
			Entry:       models.RuleSpec{Kind: "macd_cross_up"},
			Exit:        models.RuleSpec{Kind: "macd_below_signal"},
		},
		{
			Name:        "bollinger_reversion",
			Description: "Buy below the lower band, sell back above the middle band.",
			Entry:       models.RuleSpec{Kind: "close_below_lower_band"},
			Exit:        models.RuleSpec{Kind: "close_above_middle_band"},
		},
		{
			Name:        "stochastic_reversal",
			Description: "Buy when %K and Williams %R are both oversold, sell when %K is overbought.",
			Entry: models.RuleSpec{Kind: "all", Rules: []models.RuleSpec{
				{Kind: "stoch_below", Threshold: th(20)},
				{Kind: "williams_below", Threshold: th(-80)},
			}},
			Exit: models.RuleSpec{Kind: "stoch_above", Threshold: th(80)},
		},
	}
}
