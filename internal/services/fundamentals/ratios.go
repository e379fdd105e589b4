package fundamentals

import (
	"math"
	"sort"

	"FinScope/internal/domain/models"
	"FinScope/pkg/util"
)

// Dedupe drops reports repeating a (symbol, report date) pair, keeping the first occurrence.
func Dedupe(reports []models.FundamentalReport) []models.FundamentalReport {
	type key struct {
		symbol string
		date   int64
	}
	seen := make(map[key]struct{}, len(reports))
	out := make([]models.FundamentalReport, 0, len(reports))
	for _, r := range reports {
		k := key{r.Symbol, r.ReportDate.Unix()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Ratios derives the financial ratios from reports in any order at the given price.
// Each ratio uses the latest report that carries its inputs; a missing input or a
// zero denominator leaves the ratio nil.
func Ratios(reports []models.FundamentalReport, price float64) models.FinancialRatios {
	rs := Dedupe(reports)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].ReportDate.After(rs[j].ReportDate) })

	var out models.FinancialRatios
	validPrice := util.Finite(price) && price > 0

	if validPrice {
		if eps, ok := annualEPS(rs); ok {
			out.PE = div(price, eps)
		}
		if r, ok := latest(rs, func(r models.FundamentalReport) bool {
			return r.TotalEquity != nil && r.SharesOutstanding != nil && *r.SharesOutstanding > 0
		}); ok {
			if bvps := div(*r.TotalEquity, *r.SharesOutstanding); bvps != nil {
				out.PB = div(price, *bvps)
			}
		}
	}
	if r, ok := latest(rs, has(func(r models.FundamentalReport) (*float64, *float64) { return r.NetIncome, r.TotalEquity })); ok {
		out.ROE = div(*r.NetIncome, *r.TotalEquity)
	}
	if r, ok := latest(rs, has(func(r models.FundamentalReport) (*float64, *float64) { return r.NetIncome, r.TotalAssets })); ok {
		out.ROA = div(*r.NetIncome, *r.TotalAssets)
	}
	if r, ok := latest(rs, has(func(r models.FundamentalReport) (*float64, *float64) { return r.TotalLiabilities, r.TotalEquity })); ok {
		out.DebtToEquity = div(*r.TotalLiabilities, *r.TotalEquity)
	}
	if r, ok := latest(rs, has(func(r models.FundamentalReport) (*float64, *float64) { return r.NetIncome, r.Revenue })); ok {
		out.ProfitMargin = div(*r.NetIncome, *r.Revenue)
	}
	out.RevenueGrowth = growth(rs, func(r models.FundamentalReport) *float64 { return r.Revenue })
	out.EarningsGrowth = growth(rs, func(r models.FundamentalReport) *float64 { return r.NetIncome })
	return out
}

func div(num, den float64) *float64 {
	if den == 0 || !util.Finite(num) || !util.Finite(den) {
		return nil
	}
	v := num / den
	if !util.Finite(v) {
		return nil
	}
	return &v
}

func has(fields func(models.FundamentalReport) (*float64, *float64)) func(models.FundamentalReport) bool {
	return func(r models.FundamentalReport) bool {
		a, b := fields(r)
		return a != nil && b != nil && *b != 0
	}
}

// latest returns the newest report matching ok; rs is newest first.
func latest(rs []models.FundamentalReport, ok func(models.FundamentalReport) bool) (models.FundamentalReport, bool) {
	for _, r := range rs {
		if ok(r) {
			return r, true
		}
	}
	return models.FundamentalReport{}, false
}

// annualEPS prefers trailing twelve months from four consecutive quarters, then the
// latest annual figure, then the latest quarter annualised.
func annualEPS(rs []models.FundamentalReport) (float64, bool) {
	var quarters []models.FundamentalReport
	for _, r := range rs {
		if r.EPS != nil && r.IsQuarterly() {
			quarters = append(quarters, r)
		}
	}
	if len(quarters) >= 4 && consecutive(quarters[:4]) {
		sum := 0.0
		for _, q := range quarters[:4] {
			sum += *q.EPS
		}
		return sum, true
	}
	r, ok := latest(rs, func(r models.FundamentalReport) bool { return r.EPS != nil })
	if !ok {
		return 0, false
	}
	if r.IsQuarterly() {
		return *r.EPS * 4, true
	}
	return *r.EPS, true
}

// consecutive checks newest-first quarters step back one quarter at a time.
func consecutive(qs []models.FundamentalReport) bool {
	seq := func(r models.FundamentalReport) int { return r.Year*4 + *r.Quarter - 1 }
	for i := 1; i < len(qs); i++ {
		if seq(qs[i-1])-seq(qs[i]) != 1 {
			return false
		}
	}
	return true
}

// growth compares the newest figure with the same quarter a year earlier when that
// report exists, otherwise with the preceding report carrying the figure.
func growth(rs []models.FundamentalReport, field func(models.FundamentalReport) *float64) *float64 {
	var withField []models.FundamentalReport
	for _, r := range rs {
		if field(r) != nil {
			withField = append(withField, r)
		}
	}
	if len(withField) < 2 {
		return nil
	}
	cur := withField[0]
	prev := withField[1]
	if cur.IsQuarterly() {
		for _, r := range withField[1:] {
			if r.IsQuarterly() && *r.Quarter == *cur.Quarter && r.Year == cur.Year-1 {
				prev = r
				break
			}
		}
	}
	c, p := *field(cur), *field(prev)
	if p == 0 {
		return nil
	}
	return div(c-p, math.Abs(p))
}
