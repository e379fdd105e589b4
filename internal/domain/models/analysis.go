package models

import "time"

// Recommendation is the discrete call derived from the overall score.
type Recommendation string

const (
	StrongBuy  Recommendation = "strong_buy"
	Buy        Recommendation = "buy"
	Hold       Recommendation = "hold"
	Sell       Recommendation = "sell"
	StrongSell Recommendation = "strong_sell"
)

// Recommendations lists every value from most bearish to most bullish.
var Recommendations = []Recommendation{StrongSell, Sell, Hold, Buy, StrongBuy}

// Valid reports whether r is a known recommendation.
func (r Recommendation) Valid() bool {
	switch r {
	case StrongBuy, Buy, Hold, Sell, StrongSell:
		return true
	}
	return false
}

// Rank orders recommendations by bullishness: -2 (strong_sell) to 2 (strong_buy).
func (r Recommendation) Rank() int {
	switch r {
	case StrongSell:
		return -2
	case Sell:
		return -1
	case Hold:
		return 0
	case Buy:
		return 1
	case StrongBuy:
		return 2
	}
	return 0
}

// Action collapses the recommendation into the buy/hold/sell set used for accuracy tracking.
func (r Recommendation) Action() Action {
	switch r {
	case StrongBuy, Buy:
		return ActionBuy
	case StrongSell, Sell:
		return ActionSell
	case Hold:
		return ActionHold
	}
	return ActionHold
}

// Action is the reduced recommendation set.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionHold Action = "hold"
	ActionSell Action = "sell"
)

// Sentiment is the direction reported by the sentiment provider.
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Neutral Sentiment = "neutral"
)

// Valid reports whether s is a known sentiment.
func (s Sentiment) Valid() bool {
	switch s {
	case Bullish, Bearish, Neutral:
		return true
	}
	return false
}

// MarketTrend uses the same three directions as Sentiment.
type MarketTrend = Sentiment

// RiskLevel grows with how extreme the recommendation is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// AnalysisScores holds the four components, each in [0,1].
type AnalysisScores struct {
	Technical   float64 `json:"technical"`
	Fundamental float64 `json:"fundamental"`
	Sentiment   float64 `json:"sentiment"`
	Macro       float64 `json:"macro"`
}

// OverallScore is the blended score and how much to trust it.
type OverallScore struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// RecommendationResult is the output of the recommendation engine.
type RecommendationResult struct {
	Recommendation Recommendation `json:"recommendation"`
	Action         Action         `json:"action"`
	Scores         AnalysisScores `json:"scores"`
	Overall        OverallScore   `json:"overall"`
	Reasoning      string         `json:"reasoning"`
	RiskWarning    string         `json:"risk_warning"`
	RiskLevel      RiskLevel      `json:"risk_level"`
}

// TechnicalSignal is one rule vote behind the technical score.
type TechnicalSignal struct {
	Name      string    `json:"name"`
	Direction Sentiment `json:"direction"`
	Weight    float64   `json:"weight"`
	Detail    string    `json:"detail"`
}

// TechnicalAnalysis is the technical score with the votes that produced it.
type TechnicalAnalysis struct {
	Score    float64           `json:"score"`
	Signals  []TechnicalSignal `json:"signals"`
	Snapshot IndicatorSnapshot `json:"snapshot"`
}

// FundamentalAnalysis is the fundamental score with ratios and summary.
type FundamentalAnalysis struct {
	Score   float64            `json:"score"`
	Ratios  FinancialRatios    `json:"ratios"`
	Summary FundamentalSummary `json:"summary"`
	Reports int                `json:"reports"`
}

// AnalysisReport is everything one analysis run produces. It is what sinks persist.
type AnalysisReport struct {
	ID             string               `json:"id"`
	Symbol         string               `json:"symbol"`
	Interval       string               `json:"interval"`
	GeneratedAt    time.Time            `json:"generated_at"`
	CurrentPrice   float64              `json:"current_price"`
	Bars           int                  `json:"bars"`
	MarketTrend    MarketTrend          `json:"market_trend"`
	Technical      TechnicalAnalysis    `json:"technical"`
	Fundamental    FundamentalAnalysis  `json:"fundamental"`
	Sentiment      SentimentResult      `json:"sentiment"`
	Recommendation RecommendationResult `json:"recommendation"`
	Prediction     PricePrediction      `json:"prediction"`
	Degraded       bool                 `json:"degraded"`
	Notes          []string             `json:"notes,omitempty"`
	Errors         map[string]string    `json:"errors,omitempty"`
	Duration       time.Duration        `json:"duration_ns"`
}
