package fundamentals

import "FinScope/internal/domain/models"

// neutralPrior is the weight of the implicit 0.5 vote. It pulls thin data toward neutral.
const neutralPrior = 1.0

// Component is one ratio's contribution to the fundamental score.
type Component struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// ScoreResult is the fundamental score with its components.
type ScoreResult struct {
	Score      float64     `json:"score"`
	Components []Component `json:"components"`
}

type bucketRule struct {
	name   string
	weight float64
	value  func(models.FinancialRatios) *float64
	score  func(float64) float64
}

var rules = []bucketRule{
	{"pe", 1.5, func(r models.FinancialRatios) *float64 { return r.PE }, func(v float64) float64 {
		switch {
		case v <= 0:
			return 0.2
		case v < 15:
			return 0.9
		case v < 25:
			return 0.65
		case v < 40:
			return 0.4
		}
		return 0.2
	}},
	{"pb", 1, func(r models.FinancialRatios) *float64 { return r.PB }, func(v float64) float64 {
		switch {
		case v < 0:
			return 0.15
		case v < 1:
			return 0.85
		case v < 3:
			return 0.65
		case v < 5:
			return 0.45
		}
		return 0.25
	}},
	{"roe", 1.5, func(r models.FinancialRatios) *float64 { return r.ROE }, func(v float64) float64 {
		switch {
		case v > 0.2:
			return 0.9
		case v > 0.15:
			return 0.75
		case v > 0.1:
			return 0.6
		case v > 0:
			return 0.45
		}
		return 0.2
	}},
	{"roa", 0.5, func(r models.FinancialRatios) *float64 { return r.ROA }, func(v float64) float64 {
		switch {
		case v > 0.1:
			return 0.85
		case v > 0.05:
			return 0.7
		case v > 0:
			return 0.5
		}
		return 0.2
	}},
	{"debt_to_equity", 1.5, func(r models.FinancialRatios) *float64 { return r.DebtToEquity }, func(v float64) float64 {
		switch {
		case v < 0:
			return 0.1
		case v < 0.5:
			return 0.85
		case v < 1:
			return 0.7
		case v < 2:
			return 0.45
		}
		return 0.2
	}},
	{"profit_margin", 1, func(r models.FinancialRatios) *float64 { return r.ProfitMargin }, func(v float64) float64 {
		switch {
		case v > 0.2:
			return 0.85
		case v > 0.1:
			return 0.7
		case v > 0:
			return 0.5
		}
		return 0.2
	}},
	{"revenue_growth", 1, func(r models.FinancialRatios) *float64 { return r.RevenueGrowth }, growthScore},
	{"earnings_growth", 1, func(r models.FinancialRatios) *float64 { return r.EarningsGrowth }, growthScore},
}

func growthScore(v float64) float64 {
	switch {
	case v > 0.2:
		return 0.9
	case v > 0.05:
		return 0.7
	case v > 0:
		return 0.55
	case v > -0.05:
		return 0.4
	}
	return 0.2
}

// Score reduces ratios to [0,1]. Missing ratios contribute nothing, so fewer inputs
// leave the result closer to 0.5.
func Score(r models.FinancialRatios) ScoreResult {
	var res ScoreResult
	sum := neutralPrior * 0.5
	weight := neutralPrior
	for _, rule := range rules {
		v := rule.value(r)
		if v == nil {
			continue
		}
		s := rule.score(*v)
		sum += s * rule.weight
		weight += rule.weight
		res.Components = append(res.Components, Component{Name: rule.name, Value: *v, Score: s, Weight: rule.weight})
	}
	res.Score = sum / weight
	return res
}

// Analyze computes ratios, score and summary in one pass.
func Analyze(reports []models.FundamentalReport, price float64) models.FundamentalAnalysis {
	ratios := Ratios(reports, price)
	return models.FundamentalAnalysis{
		Score:   Score(ratios).Score,
		Ratios:  ratios,
		Summary: Summarize(ratios),
		Reports: len(Dedupe(reports)),
	}
}
