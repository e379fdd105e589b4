package sentiment

import (
	"context"
	"fmt"
	"math"

	"FinScope/internal/domain/models"
	domsvc "FinScope/internal/domain/service"
	"FinScope/pkg/util"
)

// RuleBasedProvider derives a sentiment from the technical and fundamental scores alone.
// It never fails and needs no network.
type RuleBasedProvider struct{}

func NewRuleBasedProvider() *RuleBasedProvider { return &RuleBasedProvider{} }

func (p *RuleBasedProvider) Name() string { return "rule_based" }

func (p *RuleBasedProvider) Analyze(_ context.Context, req models.SentimentRequest) (models.SentimentResult, error) {
	tech := util.Clamp(req.TechnicalScore, 0, 1)
	fund := util.Clamp(req.FundamentalScore, 0, 1)
	combined := 0.6*tech + 0.4*fund

	s := models.Neutral
	switch {
	case combined > 0.58:
		s = models.Bullish
	case combined < 0.42:
		s = models.Bearish
	}

	res := models.SentimentResult{
		Sentiment:  s,
		Confidence: util.Round(util.Clamp(0.4+math.Abs(combined-0.5)*1.2, 0, 0.9), 4),
		Reasoning: fmt.Sprintf("Combined technical %.2f and fundamental %.2f scores give %.2f, read as %s.",
			tech, fund, combined, s),
		KeyFactors:  []string{},
		RiskFactors: []string{},
		Source:      p.Name(),
	}
	if tech >= 0.6 {
		res.KeyFactors = append(res.KeyFactors, "Supportive technical picture")
	} else if tech <= 0.4 {
		res.RiskFactors = append(res.RiskFactors, "Weak technical picture")
	}
	if fund >= 0.6 {
		res.KeyFactors = append(res.KeyFactors, "Solid fundamentals")
	} else if fund <= 0.4 {
		res.RiskFactors = append(res.RiskFactors, "Weak fundamentals")
	}
	if req.Technical.RSI != nil {
		switch rsi := *req.Technical.RSI; {
		case rsi > 70:
			res.RiskFactors = append(res.RiskFactors, fmt.Sprintf("RSI overbought at %.1f", rsi))
		case rsi < 30:
			res.KeyFactors = append(res.KeyFactors, fmt.Sprintf("RSI oversold at %.1f", rsi))
		}
	}
	return res, nil
}

var _ domsvc.SentimentProvider = (*RuleBasedProvider)(nil)
