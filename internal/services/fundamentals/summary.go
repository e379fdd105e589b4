package fundamentals

import (
	"strings"

	"FinScope/internal/domain/models"
)

// Summarize picks one phrase per bucket. Same ratios, same text.
func Summarize(r models.FinancialRatios) models.FundamentalSummary {
	s := models.FundamentalSummary{
		Valuation: valuation(r),
		Growth:    growthPhrase(r),
		Health:    health(r),
	}
	parts := []string{s.Valuation, s.Growth, s.Health}
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	s.Text = strings.Join(parts, ". ") + "."
	return s
}

func valuation(r models.FinancialRatios) string {
	if r.PE == nil {
		return "valuation unknown"
	}
	switch pe := *r.PE; {
	case pe <= 0:
		return "loss-making, earnings multiple not meaningful"
	case pe < 15:
		return "attractively valued on earnings"
	case pe < 25:
		return "fairly valued on earnings"
	default:
		return "richly valued on earnings"
	}
}

func growthPhrase(r models.FinancialRatios) string {
	var vals []float64
	if r.RevenueGrowth != nil {
		vals = append(vals, *r.RevenueGrowth)
	}
	if r.EarningsGrowth != nil {
		vals = append(vals, *r.EarningsGrowth)
	}
	if len(vals) == 0 {
		return "growth unknown"
	}
	g := 0.0
	for _, v := range vals {
		g += v
	}
	g /= float64(len(vals))
	switch {
	case g > 0.15:
		return "strong growth"
	case g > 0.03:
		return "moderate growth"
	case g > -0.03:
		return "flat growth"
	default:
		return "declining results"
	}
}

func health(r models.FinancialRatios) string {
	if r.DebtToEquity == nil && r.ProfitMargin == nil {
		return "financial health unknown"
	}
	weak := (r.DebtToEquity != nil && (*r.DebtToEquity > 2 || *r.DebtToEquity < 0)) ||
		(r.ProfitMargin != nil && *r.ProfitMargin < 0)
	if weak {
		return "weak financial health"
	}
	strong := r.DebtToEquity != nil && *r.DebtToEquity < 1 &&
		r.ProfitMargin != nil && *r.ProfitMargin > 0.1
	if strong {
		return "strong financial health"
	}
	return "adequate financial health"
}
