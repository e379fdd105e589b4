package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
	"FinScope/internal/domain/repository"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadBarsCSV(t *testing.T) {
	p := writeFile(t, "aapl.csv", "Date,Close,Open,High,Low,Volume\n"+
		"2024-01-03,101,100,102,99,1200\n"+
		"2024-01-02,100.5,99,101,98,1000\n")

	bars, err := LoadBarsFile(p)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
	assert.Equal(t, models.PricePoint{
		Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Open:      99,
		High:      101,
		Low:       98,
		Close:     100.5,
		Volume:    1000,
	}, bars[1])
}

func TestLoadBarsCSVErrors(t *testing.T) {
	cases := map[string]string{
		"missing column": "date,open,high,close\n2024-01-02,1,2,1\n",
		"bad date":       "date,open,high,low,close\nyesterday,1,2,0,1\n",
		"bad number":     "date,open,high,low,close\n2024-01-02,1,2,x,1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadBarsFile(writeFile(t, "bars.csv", body))
			assert.Error(t, err)
		})
	}
}

func TestLoadBarsJSONAndFundamentals(t *testing.T) {
	bars, err := LoadBarsFile(writeFile(t, "bars.json",
		`[{"timestamp":"2024-01-02T00:00:00Z","open":1,"high":2,"low":0.5,"close":1.5,"volume":10}]`))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)

	reports, err := LoadFundamentalsFile(writeFile(t, "funds.json",
		`[{"symbol":"AAPL","report_date":"2023-12-31T00:00:00Z","quarter":4,"year":2023,"eps":2.1}]`))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].IsQuarterly())
	assert.Equal(t, 2.1, *reports[0].EPS)
	assert.Nil(t, reports[0].Revenue)
}

func TestFileMarketData(t *testing.T) {
	ctx := context.Background()
	d0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	fd := NewFileMarketData()
	fd.AddBars("aapl", []models.PricePoint{
		{Timestamp: d0.AddDate(0, 0, 2), Close: 3},
		{Timestamp: d0, Close: 1},
		{Timestamp: d0.AddDate(0, 0, 1), Close: 2},
	})
	fd.AddFundamentals("AAPL", []models.FundamentalReport{{Symbol: "AAPL", Year: 2023}})

	last, err := fd.GetPriceHistory(ctx, "AAPL", repository.IV1d, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, []float64{2, 3}, []float64{last[0].Close, last[1].Close})

	window, err := fd.GetPrices(ctx, "AAPL", d0, d0.AddDate(0, 0, 1), repository.IV1d)
	require.NoError(t, err)
	assert.Len(t, window, 2)

	reports, err := fd.GetFundamentals(ctx, "aapl")
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	none, err := fd.GetPriceHistory(ctx, "MSFT", repository.IV1d, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
