package models

import "time"

// FundamentalReport is one reporting period for a symbol. Missing figures are nil.
type FundamentalReport struct {
	Symbol            string    `json:"symbol"`
	ReportDate        time.Time `json:"report_date"`
	Quarter           *int      `json:"quarter,omitempty"`
	Year              int       `json:"year"`
	Revenue           *float64  `json:"revenue,omitempty"`
	NetIncome         *float64  `json:"net_income,omitempty"`
	EPS               *float64  `json:"eps,omitempty"`
	TotalAssets       *float64  `json:"total_assets,omitempty"`
	TotalLiabilities  *float64  `json:"total_liabilities,omitempty"`
	TotalEquity       *float64  `json:"total_equity,omitempty"`
	OperatingCashFlow *float64  `json:"operating_cash_flow,omitempty"`
	SharesOutstanding *float64  `json:"shares_outstanding,omitempty"`
}

// IsQuarterly reports whether the period is a fiscal quarter.
func (r FundamentalReport) IsQuarterly() bool {
	return r.Quarter != nil && *r.Quarter >= 1 && *r.Quarter <= 4
}

// FinancialRatios is derived from one or more reports and never persisted on its own.
// A nil ratio is unavailable.
type FinancialRatios struct {
	PE             *float64 `json:"pe,omitempty"`
	PB             *float64 `json:"pb,omitempty"`
	ROE            *float64 `json:"roe,omitempty"`
	ROA            *float64 `json:"roa,omitempty"`
	DebtToEquity   *float64 `json:"debt_to_equity,omitempty"`
	ProfitMargin   *float64 `json:"profit_margin,omitempty"`
	RevenueGrowth  *float64 `json:"revenue_growth,omitempty"`
	EarningsGrowth *float64 `json:"earnings_growth,omitempty"`
}

// Available counts the ratios that could be computed.
func (r FinancialRatios) Available() int {
	n := 0
	for _, v := range []*float64{r.PE, r.PB, r.ROE, r.ROA, r.DebtToEquity, r.ProfitMargin, r.RevenueGrowth, r.EarningsGrowth} {
		if v != nil {
			n++
		}
	}
	return n
}

// FundamentalSummary is the textual reduction of the ratios.
type FundamentalSummary struct {
	Valuation string `json:"valuation"`
	Growth    string `json:"growth"`
	Health    string `json:"health"`
	Text      string `json:"text"`
}

// Float returns a pointer to v. Handy for optional report fields.
func Float(v float64) *float64 { return &v }
