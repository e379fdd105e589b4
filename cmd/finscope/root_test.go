package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
	"FinScope/internal/usecase"
)

func barsCSV(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,open,high,low,close,volume\n")
	d0 := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 + 10*math.Sin(float64(i)/8) + 0.05*float64(i)
		fmt.Fprintf(&b, "%s,%.4f,%.4f,%.4f,%.4f,%d\n", d0.AddDate(0, 0, i).Format("2006-01-02"), c, c+1, c-1, c, 1000+i)
	}
	p := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStrategiesCommand(t *testing.T) {
	out, err := run(t, "strategies")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "rsi_reversion")
	assert.Contains(t, out, "sma_crossover")
}

func TestAnalyzeCommandJSON(t *testing.T) {
	out, err := run(t, "analyze", "aapl", "--bars", barsCSV(t, 200), "--trend", "neutral", "--json")
	require.NoError(t, err)

	var r models.AnalysisReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "AAPL", r.Symbol)
	assert.Equal(t, 200, r.Bars)
	assert.Equal(t, models.Neutral, r.MarketTrend)
	assert.True(t, r.Recommendation.Recommendation.Valid())
	assert.Greater(t, r.Prediction.PredictedPrice, 0.0)
}

func TestAnalyzeCommandTable(t *testing.T) {
	out, err := run(t, "analyze", "AAPL", "--bars", barsCSV(t, 200), "--trend", "bullish", "--macro", "0.7")
	require.NoError(t, err)
	assert.Contains(t, out, "Recommendation")
	assert.Contains(t, out, "Scenarios")
}

func TestAnalyzeCommandRequiresBars(t *testing.T) {
	_, err := run(t, "analyze", "AAPL")
	assert.Error(t, err)
}

func TestBacktestCommand(t *testing.T) {
	out, err := run(t, "backtest", "AAPL", "--bars", barsCSV(t, 300), "-s", "rsi_reversion,sma_crossover", "--json")
	require.NoError(t, err)

	var outcomes []usecase.BacktestOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 2)
	assert.Equal(t, "rsi_reversion", outcomes[0].Strategy)
	require.NotNil(t, outcomes[0].Result)
	assert.Equal(t, 300, outcomes[0].Result.Bars)
}

func TestBacktestCommandUnknownStrategy(t *testing.T) {
	_, err := run(t, "backtest", "AAPL", "--bars", barsCSV(t, 100), "-s", "moon_phase")
	assert.Error(t, err)
}
