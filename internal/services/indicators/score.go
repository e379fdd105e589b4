package indicators

import (
	"fmt"

	"FinScope/internal/domain/models"
	"FinScope/pkg/util"
)

// Rule weights of the technical score.
const (
	weightRSI        = 3.0
	weightTrend      = 1.5
	weightMACD       = 1.0
	weightBollinger  = 1.0
	weightStochastic = 1.0
	weightWilliams   = 0.5
	weightOBV        = 0.5
)

// ScoreResult is the technical score and the rule votes behind it.
// Evaluated is the total weight of rules that had the data they need.
type ScoreResult struct {
	Score     float64                  `json:"score"`
	Evaluated float64                  `json:"evaluated_weight"`
	Signals   []models.TechnicalSignal `json:"signals"`
}

// TechnicalScore folds the snapshot into a score in [0,1]: 0.5 when no rule can be
// evaluated, above 0.5 when bullish votes outweigh bearish ones.
func TechnicalScore(s Snapshot) ScoreResult {
	var res ScoreResult
	bull, bear := 0.0, 0.0
	vote := func(name string, w float64, dir models.Sentiment, detail string) {
		res.Evaluated += w
		switch dir {
		case models.Bullish:
			bull += w
		case models.Bearish:
			bear += w
		}
		res.Signals = append(res.Signals, models.TechnicalSignal{Name: name, Direction: dir, Weight: w, Detail: detail})
	}

	if s.RSI != nil {
		rsi := *s.RSI
		switch {
		case rsi < 30:
			vote("rsi", weightRSI, models.Bullish, fmt.Sprintf("RSI %.1f oversold", rsi))
		case rsi > 70:
			vote("rsi", weightRSI, models.Bearish, fmt.Sprintf("RSI %.1f overbought", rsi))
		default:
			vote("rsi", weightRSI, models.Neutral, fmt.Sprintf("RSI %.1f", rsi))
		}
	}

	if s.SMAShort != nil && s.SMALong != nil {
		c, short, long := s.Close, *s.SMAShort, *s.SMALong
		switch {
		case c > short && short > long:
			vote("trend", weightTrend, models.Bullish, "price above rising moving averages")
		case c < short && short < long:
			vote("trend", weightTrend, models.Bearish, "price below falling moving averages")
		default:
			vote("trend", weightTrend, models.Neutral, "moving averages mixed")
		}
	}

	if s.MACD != nil && s.MACDSignal != nil {
		m, sig := *s.MACD, *s.MACDSignal
		switch {
		case m > sig:
			vote("macd", weightMACD, models.Bullish, fmt.Sprintf("MACD %.3f above signal %.3f", m, sig))
		case m < sig:
			vote("macd", weightMACD, models.Bearish, fmt.Sprintf("MACD %.3f below signal %.3f", m, sig))
		default:
			vote("macd", weightMACD, models.Neutral, "MACD on signal line")
		}
	}

	if s.BollingerLower != nil && s.BollingerUpper != nil {
		switch {
		case s.Close <= *s.BollingerLower:
			vote("bollinger", weightBollinger, models.Bullish, "close at or below lower band")
		case s.Close >= *s.BollingerUpper:
			vote("bollinger", weightBollinger, models.Bearish, "close at or above upper band")
		default:
			vote("bollinger", weightBollinger, models.Neutral, "close inside bands")
		}
	}

	if s.StochK != nil {
		k := *s.StochK
		switch {
		case k < 20:
			vote("stochastic", weightStochastic, models.Bullish, fmt.Sprintf("%%K %.1f oversold", k))
		case k > 80:
			vote("stochastic", weightStochastic, models.Bearish, fmt.Sprintf("%%K %.1f overbought", k))
		default:
			vote("stochastic", weightStochastic, models.Neutral, fmt.Sprintf("%%K %.1f", k))
		}
	}

	if s.WilliamsR != nil {
		w := *s.WilliamsR
		switch {
		case w < -80:
			vote("williams_r", weightWilliams, models.Bullish, fmt.Sprintf("%%R %.1f oversold", w))
		case w > -20:
			vote("williams_r", weightWilliams, models.Bearish, fmt.Sprintf("%%R %.1f overbought", w))
		default:
			vote("williams_r", weightWilliams, models.Neutral, fmt.Sprintf("%%R %.1f", w))
		}
	}

	if s.OBVChange != nil {
		switch d := *s.OBVChange; {
		case d > 0:
			vote("obv", weightOBV, models.Bullish, "volume accumulating")
		case d < 0:
			vote("obv", weightOBV, models.Bearish, "volume distributing")
		default:
			vote("obv", weightOBV, models.Neutral, "volume flat")
		}
	}

	if res.Evaluated == 0 {
		res.Score = 0.5
		return res
	}
	res.Score = util.Clamp(0.5+(bull-bear)/(2*res.Evaluated), 0, 1)
	return res
}

// Analyze scores the latest bar of the set.
func Analyze(set *Set) models.TechnicalAnalysis {
	snap, _ := set.Latest()
	sc := TechnicalScore(snap)
	return models.TechnicalAnalysis{Score: sc.Score, Signals: sc.Signals, Snapshot: snap}
}
