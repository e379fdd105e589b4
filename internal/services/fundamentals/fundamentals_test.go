package fundamentals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
)

func quarter(year, q int, eps, revenue, income float64) models.FundamentalReport {
	qq := q
	return models.FundamentalReport{
		Symbol:     "ACME",
		ReportDate: time.Date(year, time.Month(q*3), 28, 0, 0, 0, 0, time.UTC),
		Quarter:    &qq,
		Year:       year,
		EPS:        models.Float(eps),
		Revenue:    models.Float(revenue),
		NetIncome:  models.Float(income),
	}
}

func TestRatiosBalanceSheet(t *testing.T) {
	r := models.FundamentalReport{
		Symbol:            "ACME",
		ReportDate:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Year:              2024,
		Revenue:           models.Float(1000),
		NetIncome:         models.Float(100),
		EPS:               models.Float(5),
		TotalAssets:       models.Float(2000),
		TotalLiabilities:  models.Float(500),
		TotalEquity:       models.Float(1000),
		SharesOutstanding: models.Float(100),
	}
	got := Ratios([]models.FundamentalReport{r}, 50)

	require.NotNil(t, got.PE)
	assert.InDelta(t, 10, *got.PE, 1e-12)
	require.NotNil(t, got.PB)
	assert.InDelta(t, 5, *got.PB, 1e-12)
	assert.InDelta(t, 0.1, *got.ROE, 1e-12)
	assert.InDelta(t, 0.05, *got.ROA, 1e-12)
	assert.InDelta(t, 0.5, *got.DebtToEquity, 1e-12)
	assert.InDelta(t, 0.1, *got.ProfitMargin, 1e-12)
	assert.Nil(t, got.RevenueGrowth, "single report has no growth")
}

func TestRatiosZeroDenominatorIsUnavailable(t *testing.T) {
	r := models.FundamentalReport{
		Symbol:           "ACME",
		ReportDate:       time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		EPS:              models.Float(0),
		NetIncome:        models.Float(10),
		TotalEquity:      models.Float(0),
		TotalLiabilities: models.Float(10),
		Revenue:          models.Float(0),
	}
	got := Ratios([]models.FundamentalReport{r}, 10)
	assert.Nil(t, got.PE)
	assert.Nil(t, got.ROE)
	assert.Nil(t, got.DebtToEquity)
	assert.Nil(t, got.ProfitMargin)
	assert.Equal(t, 0, got.Available())

	assert.Nil(t, Ratios(nil, 10).PE)
}

func TestTrailingEPSAndYearOverYearGrowth(t *testing.T) {
	reports := []models.FundamentalReport{
		quarter(2024, 4, 1.0, 130, 13),
		quarter(2023, 4, 0.8, 100, 10),
		quarter(2024, 2, 1.0, 120, 12),
		quarter(2024, 3, 1.0, 125, 12),
		quarter(2024, 1, 1.0, 110, 11),
	}
	got := Ratios(reports, 40)

	require.NotNil(t, got.PE)
	assert.InDelta(t, 10, *got.PE, 1e-12, "price over four quarters of EPS")
	require.NotNil(t, got.RevenueGrowth)
	assert.InDelta(t, 0.3, *got.RevenueGrowth, 1e-12, "Q4 against Q4 a year earlier")
	assert.InDelta(t, 0.3, *got.EarningsGrowth, 1e-12)
}

func TestGrowthFallsBackToPrecedingReport(t *testing.T) {
	reports := []models.FundamentalReport{
		quarter(2024, 1, 1, 100, 10),
		quarter(2024, 2, 1, 90, 5),
	}
	got := Ratios(reports, 10)
	require.NotNil(t, got.RevenueGrowth)
	assert.InDelta(t, -0.1, *got.RevenueGrowth, 1e-12)
	assert.InDelta(t, -0.5, *got.EarningsGrowth, 1e-12)
	// two quarters only: latest quarter annualised
	assert.InDelta(t, 2.5, *got.PE, 1e-12)
}

func TestDedupeKeepsFirst(t *testing.T) {
	a := quarter(2024, 1, 1, 100, 10)
	b := quarter(2024, 1, 2, 200, 20)
	out := Dedupe([]models.FundamentalReport{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, *out[0].EPS)
}

func TestScoreNeutralWithoutData(t *testing.T) {
	assert.Equal(t, 0.5, Score(models.FinancialRatios{}).Score)
}

func TestScoreDegradesTowardNeutral(t *testing.T) {
	one := Score(models.FinancialRatios{PE: models.Float(10)})
	assert.Greater(t, one.Score, 0.5)

	all := Score(models.FinancialRatios{
		PE:             models.Float(10),
		PB:             models.Float(0.8),
		ROE:            models.Float(0.25),
		ROA:            models.Float(0.12),
		DebtToEquity:   models.Float(0.3),
		ProfitMargin:   models.Float(0.25),
		RevenueGrowth:  models.Float(0.3),
		EarningsGrowth: models.Float(0.3),
	})
	assert.Greater(t, all.Score, one.Score)
	assert.LessOrEqual(t, all.Score, 1.0)
	assert.Len(t, all.Components, 8)

	poor := Score(models.FinancialRatios{PE: models.Float(-3), DebtToEquity: models.Float(4)})
	assert.Less(t, poor.Score, 0.5)
	assert.GreaterOrEqual(t, poor.Score, 0.0)
}

func TestSummarize(t *testing.T) {
	s := Summarize(models.FinancialRatios{
		PE:            models.Float(12),
		RevenueGrowth: models.Float(0.2),
		DebtToEquity:  models.Float(0.5),
		ProfitMargin:  models.Float(0.2),
	})
	assert.Equal(t, "attractively valued on earnings", s.Valuation)
	assert.Equal(t, "strong growth", s.Growth)
	assert.Equal(t, "strong financial health", s.Health)
	assert.Equal(t, "Attractively valued on earnings. Strong growth. Strong financial health.", s.Text)

	empty := Summarize(models.FinancialRatios{})
	assert.Equal(t, "Valuation unknown. Growth unknown. Financial health unknown.", empty.Text)
}

func TestAnalyze(t *testing.T) {
	a := Analyze([]models.FundamentalReport{quarter(2024, 1, 1, 100, 10), quarter(2024, 1, 1, 100, 10)}, 20)
	assert.Equal(t, 1, a.Reports)
	assert.NotEmpty(t, a.Summary.Text)
	assert.GreaterOrEqual(t, a.Score, 0.0)
	assert.LessOrEqual(t, a.Score, 1.0)
}
