package prediction

import (
	"fmt"
	"math"
	"strings"

	"FinScope/internal/domain/models"
	"FinScope/pkg/util"
)

const (
	maxConfidence = 95.0
	floorPercent  = -90.0
	bandProximity = 0.01
)

var baseMove = map[models.Recommendation]float64{
	models.StrongBuy:  8,
	models.Buy:        5,
	models.Hold:       1,
	models.Sell:       -5,
	models.StrongSell: -8,
}

// Input is everything a prediction is derived from. Confidence is in percent.
type Input struct {
	CurrentPrice   float64
	Indicators     models.IndicatorSnapshot
	Ratios         models.FinancialRatios
	Recommendation models.Recommendation
	Confidence     float64
	Trend          models.MarketTrend
	TimeFrame      string
}

type Config struct {
	ScenarioBand     float64
	DefaultTimeFrame string
}

type Option func(*Config)

// WithScenarioBand sets the +/- fraction around the base prediction.
func WithScenarioBand(b float64) Option {
	return func(c *Config) {
		if util.Finite(b) && b >= 0 && b < 1 {
			c.ScenarioBand = b
		}
	}
}

func WithTimeFrame(tf string) Option {
	return func(c *Config) {
		if tf != "" {
			c.DefaultTimeFrame = tf
		}
	}
}

// Engine turns a recommendation into a bounded price prediction.
type Engine struct {
	cfg Config
}

func NewEngine(opts ...Option) *Engine {
	cfg := Config{ScenarioBand: 0.05, DefaultTimeFrame: "30d"}
	for _, o := range opts {
		o(&cfg)
	}
	return &Engine{cfg: cfg}
}

// Predict validates in and computes the prediction. The predicted price stays positive
// for any positive current price.
func (e *Engine) Predict(in Input) (models.PricePrediction, error) {
	if err := validate(&in); err != nil {
		return models.PricePrediction{}, err
	}
	if in.TimeFrame == "" {
		in.TimeFrame = e.cfg.DefaultTimeFrame
	}

	adj := adjustments(in)
	sum := 0.0
	for _, a := range adj {
		sum += a.Percent
	}
	scaled := math.Max(sum*in.Confidence/100, floorPercent)
	predicted := cents(in.CurrentPrice * (1 + scaled/100))

	band := e.cfg.ScenarioBand
	bull := math.Max(cents(predicted*(1+band)), predicted)
	bear := math.Min(cents(predicted*(1-band)), predicted)

	return models.PricePrediction{
		CurrentPrice:   in.CurrentPrice,
		PredictedPrice: predicted,
		ChangePercent:  util.Round((predicted-in.CurrentPrice)/in.CurrentPrice*100, 2),
		Confidence:     math.Min(in.Confidence, maxConfidence),
		TimeFrame:      in.TimeFrame,
		Reasoning:      reasoning(adj, scaled, in),
		Adjustments:    adj,
		RiskFactors:    RiskFactors(in),
		Scenarios:      models.Scenarios{Bullish: bull, Base: predicted, Bearish: bear},
	}, nil
}

func validate(in *Input) error {
	if !util.Finite(in.CurrentPrice) || in.CurrentPrice <= 0 {
		return models.Invalid("current_price", "must be positive, got %v", in.CurrentPrice)
	}
	if !util.Finite(in.Confidence) || in.Confidence < 0 || in.Confidence > 100 {
		return models.Invalid("confidence", "must be within [0,100], got %v", in.Confidence)
	}
	if !in.Recommendation.Valid() {
		return models.Invalid("recommendation", "unknown value %q", in.Recommendation)
	}
	if in.Trend == "" {
		in.Trend = models.Neutral
	}
	if !in.Trend.Valid() {
		return models.Invalid("market_trend", "unknown value %q", in.Trend)
	}
	return nil
}

// cents rounds to two decimals unless that would erase a positive price.
func cents(v float64) float64 {
	r := util.Round(v, 2)
	if r <= 0 {
		return v
	}
	return r
}

func val(p *float64) (float64, bool) {
	if p == nil || !util.Finite(*p) {
		return 0, false
	}
	return *p, true
}

func adjustments(in Input) []models.PriceAdjustment {
	out := []models.PriceAdjustment{{Name: "base " + string(in.Recommendation), Percent: baseMove[in.Recommendation]}}
	add := func(name string, pct float64) {
		out = append(out, models.PriceAdjustment{Name: name, Percent: pct})
	}
	snap := in.Indicators

	if rsi, ok := val(snap.RSI); ok {
		switch {
		case rsi < 30:
			add("rsi oversold", 2)
		case rsi > 70:
			add("rsi overbought", -2)
		}
	}

	switch snap.MACDCross() {
	case 1:
		add("macd bullish crossover", 1.5)
	case -1:
		add("macd bearish crossover", -1.5)
	default:
		m, ok1 := val(snap.MACD)
		s, ok2 := val(snap.MACDSignal)
		if ok1 && ok2 {
			switch {
			case m > s:
				add("macd above signal", 0.5)
			case m < s:
				add("macd below signal", -0.5)
			}
		}
	}

	price := in.CurrentPrice
	if lower, ok := val(snap.BollingerLower); ok && price <= lower*(1+bandProximity) {
		add("near lower band", 1)
	} else if upper, ok := val(snap.BollingerUpper); ok && price >= upper*(1-bandProximity) {
		add("near upper band", -1)
	}

	if pe, ok := val(in.Ratios.PE); ok {
		switch {
		case pe < 0:
			add("negative earnings", -1)
		case pe < 15:
			add("low p/e", 1)
		case pe > 30:
			add("high p/e", -1)
		}
	}
	if g, ok := val(in.Ratios.EarningsGrowth); ok {
		switch {
		case g > 0.15:
			add("earnings growth", 1)
		case g < -0.10:
			add("earnings decline", -1)
		}
	}

	switch in.Trend {
	case models.Bullish:
		add("bullish market", 1.5)
	case models.Bearish:
		add("bearish market", -1.5)
	}
	return out
}

// RiskFactors lists threshold breaches independent of the predicted move.
func RiskFactors(in Input) []string {
	risks := []string{}
	if rsi, ok := val(in.Indicators.RSI); ok {
		if rsi > 70 {
			risks = append(risks, fmt.Sprintf("RSI overbought at %.1f", rsi))
		} else if rsi < 30 {
			risks = append(risks, fmt.Sprintf("RSI oversold at %.1f", rsi))
		}
	}
	if pe, ok := val(in.Ratios.PE); ok && pe > 35 {
		risks = append(risks, fmt.Sprintf("High P/E of %.1f", pe))
	}
	if de, ok := val(in.Ratios.DebtToEquity); ok && de > 2 {
		risks = append(risks, fmt.Sprintf("High leverage, debt-to-equity %.2f", de))
	}
	if in.Trend == models.Bearish {
		risks = append(risks, "Bearish market trend")
	}
	if in.Confidence < 50 {
		risks = append(risks, fmt.Sprintf("Low confidence (%.0f%%)", in.Confidence))
	}
	if vol, ok := val(in.Indicators.Volatility); ok && vol > 0.5 {
		risks = append(risks, fmt.Sprintf("High volatility, %.0f%% annualised", vol*100))
	}
	return risks
}

func reasoning(adj []models.PriceAdjustment, scaled float64, in Input) string {
	parts := make([]string, len(adj))
	for i, a := range adj {
		parts[i] = fmt.Sprintf("%s %+.2f%%", a.Name, a.Percent)
	}
	return fmt.Sprintf("%s; scaled by %.0f%% confidence to %+.2f%% over %s.",
		strings.Join(parts, "; "), in.Confidence, scaled, in.TimeFrame)
}
