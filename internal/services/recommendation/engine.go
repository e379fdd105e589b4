package recommendation

import (
	"fmt"
	"math"
	"strings"

	"FinScope/internal/domain/models"
	"FinScope/pkg/util"
)

// Cut points on the overall score. Symmetric around 0.5.
const (
	strongBuyAt  = 0.8
	buyAt        = 0.6
	holdAbove    = 0.4
	sellAbove    = 0.2
	bullishAbove = 0.55
	bearishBelow = 0.45

	lowConfidence = 0.4
)

// Weights of the four score components. They must be non-negative and sum to 1.
type Weights struct {
	Technical   float64 `json:"technical" yaml:"technical"`
	Fundamental float64 `json:"fundamental" yaml:"fundamental"`
	Sentiment   float64 `json:"sentiment" yaml:"sentiment"`
	Macro       float64 `json:"macro" yaml:"macro"`
}

// DefaultWeights weighs every component equally.
func DefaultWeights() Weights {
	return Weights{Technical: 0.25, Fundamental: 0.25, Sentiment: 0.25, Macro: 0.25}
}

func (w Weights) Validate() error {
	sum := 0.0
	for _, c := range w.components() {
		if !util.Finite(c.v) || c.v < 0 {
			return models.Invalid("weights."+c.name, "must be a non-negative number, got %v", c.v)
		}
		sum += c.v
	}
	if math.Abs(sum-1) > 1e-6 {
		return models.Invalid("weights", "must sum to 1, got %.6f", sum)
	}
	return nil
}

type component struct {
	name string
	v    float64
}

func (w Weights) components() []component {
	return []component{{"technical", w.Technical}, {"fundamental", w.Fundamental}, {"sentiment", w.Sentiment}, {"macro", w.Macro}}
}

func scoreComponents(s models.AnalysisScores) []component {
	return []component{{"technical", s.Technical}, {"fundamental", s.Fundamental}, {"sentiment", s.Sentiment}, {"macro", s.Macro}}
}

// Engine blends component scores into a recommendation. Safe for concurrent use.
type Engine struct {
	weights Weights
}

// NewEngine validates the weights.
func NewEngine(w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: w}, nil
}

// Weights returns the configured weights.
func (e *Engine) Weights() Weights { return e.weights }

// Evaluate scores each component in [0,1]. A NaN or out-of-range component is rejected
// with an InvalidInputError naming it.
func (e *Engine) Evaluate(scores models.AnalysisScores) (models.RecommendationResult, error) {
	comps := scoreComponents(scores)
	for _, c := range comps {
		if !util.Finite(c.v) || c.v < 0 || c.v > 1 {
			return models.RecommendationResult{}, models.Invalid(c.name, "score must be within [0,1], got %v", c.v)
		}
	}
	ws := e.weights.components()

	overall := 0.0
	for i, c := range comps {
		overall += ws[i].v * c.v
	}
	overall = util.Clamp(overall, 0, 1)

	variance := 0.0
	for i, c := range comps {
		d := c.v - overall
		variance += ws[i].v * d * d
	}
	agreement := util.Clamp(1-math.Sqrt(variance)/0.5, 0, 1)
	distance := math.Abs(overall-0.5) * 2
	confidence := util.Clamp(0.5*distance+0.5*agreement, 0, 1)

	rec := FromScore(overall)
	level, warning := riskFor(rec)
	if confidence < lowConfidence {
		warning += " Component signals disagree; treat this call with caution."
	}
	return models.RecommendationResult{
		Recommendation: rec,
		Action:         rec.Action(),
		Scores:         scores,
		Overall:        models.OverallScore{Score: overall, Confidence: confidence},
		Reasoning:      reasoning(rec, overall, comps),
		RiskWarning:    warning,
		RiskLevel:      level,
	}, nil
}

// FromScore maps an overall score to a recommendation. Total and monotonic.
func FromScore(score float64) models.Recommendation {
	switch {
	case score >= strongBuyAt:
		return models.StrongBuy
	case score >= buyAt:
		return models.Buy
	case score > holdAbove:
		return models.Hold
	case score > sellAbove:
		return models.Sell
	default:
		return models.StrongSell
	}
}

// SentimentScore is the fixed mapping of a sentiment direction onto the score scale.
func SentimentScore(s models.Sentiment) float64 {
	switch s {
	case models.Bullish:
		return 0.8
	case models.Bearish:
		return 0.2
	case models.Neutral:
		return 0.5
	}
	return 0.5
}

func reasoning(rec models.Recommendation, overall float64, comps []component) string {
	var bull, bear, neutral []string
	for _, c := range comps {
		txt := fmt.Sprintf("%s %.2f", c.name, c.v)
		switch {
		case c.v > bullishAbove:
			bull = append(bull, txt)
		case c.v < bearishBelow:
			bear = append(bear, txt)
		default:
			neutral = append(neutral, txt)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Overall score %.2f maps to %s.", overall, rec)
	if len(bull) > 0 {
		fmt.Fprintf(&b, " Bullish: %s.", strings.Join(bull, ", "))
	}
	if len(bear) > 0 {
		fmt.Fprintf(&b, " Bearish: %s.", strings.Join(bear, ", "))
	}
	if len(neutral) > 0 {
		fmt.Fprintf(&b, " Neutral: %s.", strings.Join(neutral, ", "))
	}
	return b.String()
}

func riskFor(rec models.Recommendation) (models.RiskLevel, string) {
	switch rec {
	case models.StrongBuy:
		return models.RiskHigh, "High risk: strong buy signals can reverse quickly. Size positions carefully and set stops."
	case models.Buy:
		return models.RiskModerate, "Moderate risk: confirm the entry against your own research."
	case models.Hold:
		return models.RiskLow, "Low risk: no decisive signal. Monitor for changes."
	case models.Sell:
		return models.RiskModerate, "Moderate risk: consider reducing exposure."
	case models.StrongSell:
		return models.RiskHigh, "High risk: signals point to significant downside. Review open positions."
	}
	return models.RiskModerate, ""
}
