package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func series(closes ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = models.PricePoint{Timestamp: day0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return out
}

func at(idx int) Rule {
	return func(_ models.PricePoint, s models.IndicatorSnapshot) (bool, bool) { return s.Index == idx, true }
}

func always(sig bool) Rule {
	return func(models.PricePoint, models.IndicatorSnapshot) (bool, bool) { return sig, true }
}

func frictionless(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(WithInitialCapital(1000), WithCommission(0, 0), WithSlippage(0))
	require.NoError(t, err)
	return e
}

func TestRoundTripWithoutCosts(t *testing.T) {
	res, err := frictionless(t).Run("ACME", series(10, 10, 11, 12, 12), Strategy{Name: "t", Entry: at(1), Exit: at(3)})
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.True(t, tr.ExitTime.After(tr.EntryTime))
	assert.InDelta(t, 100, tr.Quantity, 1e-9)
	assert.InDelta(t, 200, tr.PnL, 1e-9)
	assert.InDelta(t, 0.2, tr.ReturnPct, 1e-12)
	assert.False(t, tr.ForcedExit)

	require.Len(t, res.EquityCurve, 5)
	want := []float64{1000, 1000, 1100, 1200, 1200}
	for i, p := range res.EquityCurve {
		assert.InDelta(t, want[i], p.Equity, 1e-9)
	}
	st := res.Stats
	assert.InDelta(t, 0.2, st.TotalReturn, 1e-12)
	assert.InDelta(t, 0.2, st.BuyAndHold, 1e-12)
	assert.Equal(t, 1.0, st.WinRate)
	assert.Equal(t, 0.0, st.MaxDrawdown)
	assert.InDelta(t, 0.4, st.Exposure, 1e-12)
	assert.Nil(t, st.ProfitFactor)
}

func TestCostsAndForcedExit(t *testing.T) {
	e, err := NewEngine(WithInitialCapital(1000), WithCommission(0.01, 1), WithSlippage(0.01))
	require.NoError(t, err)
	res, err := e.Run("ACME", series(100, 100, 110), Strategy{Name: "t", Entry: at(0), Exit: always(false)})
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.True(t, tr.ForcedExit)
	assert.Equal(t, day0.AddDate(0, 0, 2), tr.ExitTime)

	entryFill := 101.0
	qty := 999 / (entryFill * 1.01)
	entryComm := 0.01*entryFill*qty + 1
	exitFill := 110 * 0.99
	exitComm := 0.01*exitFill*qty + 1
	pnl := exitFill*qty - exitComm - (entryFill*qty + entryComm)

	assert.InDelta(t, entryFill, tr.EntryPrice, 1e-9)
	assert.InDelta(t, exitFill, tr.ExitPrice, 1e-9)
	assert.InDelta(t, qty, tr.Quantity, 1e-9)
	assert.InDelta(t, entryComm+exitComm, tr.Commission, 1e-9)
	assert.InDelta(t, (entryFill-100)*qty+(110-exitFill)*qty, tr.Slippage, 1e-9)
	assert.InDelta(t, pnl, tr.PnL, 1e-9)
	assert.InDelta(t, 1000+pnl, res.Stats.FinalEquity, 1e-9)
	assert.InDelta(t, entryComm+exitComm, res.Stats.TotalCommission, 1e-9)
}

func TestNoEntryOnFinalBar(t *testing.T) {
	res, err := frictionless(t).Run("ACME", series(10), Strategy{Name: "t", Entry: always(true), Exit: always(false)})
	require.NoError(t, err)
	assert.Empty(t, res.Trades)

	res, err = frictionless(t).Run("ACME", series(10, 11), Strategy{Name: "t", Entry: always(true), Exit: always(false)})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].ForcedExit)
	assert.True(t, res.Trades[0].ExitTime.After(res.Trades[0].EntryTime))
}

func TestEmptySeries(t *testing.T) {
	res, err := frictionless(t).Run("ACME", nil, Strategy{Name: "t", Entry: always(true), Exit: always(true)})
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Empty(t, res.EquityCurve)
	assert.Equal(t, 0.0, res.Stats.TotalReturn)
	assert.Equal(t, 1000.0, res.Stats.FinalEquity)
}

func TestInvalidSeries(t *testing.T) {
	e := frictionless(t)
	pts := series(10, 11, 12)
	pts[2].Timestamp = pts[0].Timestamp
	_, err := e.Run("ACME", pts, Strategy{Name: "t", Entry: always(true), Exit: always(true)})
	assert.True(t, models.IsInvalidInput(err))

	_, err = e.Run("ACME", series(10, 0, 12), Strategy{Name: "t", Entry: always(true), Exit: always(true)})
	assert.True(t, models.IsInvalidInput(err))

	_, err = e.Run("ACME", series(10), Strategy{Name: "t"})
	assert.True(t, models.IsInvalidInput(err))
}

func TestUnsortedInputIsSorted(t *testing.T) {
	pts := series(10, 11, 12, 13)
	pts[0], pts[3] = pts[3], pts[0]
	res, err := frictionless(t).Run("ACME", pts, Strategy{Name: "t", Entry: at(0), Exit: at(3)})
	require.NoError(t, err)
	assert.True(t, res.From.Before(res.To))
	require.Len(t, res.Trades, 1)
	assert.InDelta(t, 10, res.Trades[0].EntryPrice, 1e-12)
	assert.InDelta(t, 13, res.Trades[0].ExitPrice, 1e-12)
}

func TestUndefinedIndicatorsSkipBars(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	st, err := FromDefinition(Builtins()[0])
	require.NoError(t, err)
	res, err := frictionless(t).Run("ACME", series(closes...), st)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 14, res.SkippedBars)
	assert.Len(t, res.EquityCurve, 20)
}

func TestRSIReversionTrades(t *testing.T) {
	var closes []float64
	for i := 0; i < 30; i++ {
		closes = append(closes, 100-float64(i))
	}
	for i := 1; i <= 30; i++ {
		closes = append(closes, 71+float64(i))
	}
	st, err := FromDefinition(Builtins()[0])
	require.NoError(t, err)
	e, err := NewEngine()
	require.NoError(t, err)
	res, err := e.Run("ACME", series(closes...), st)
	require.NoError(t, err)

	require.NotEmpty(t, res.Trades)
	for _, tr := range res.Trades {
		assert.True(t, tr.ExitTime.After(tr.EntryTime))
	}
	assert.Len(t, res.EquityCurve, len(closes))
	assert.GreaterOrEqual(t, res.Stats.MaxDrawdown, 0.0)
	assert.LessOrEqual(t, res.Stats.MaxDrawdown, 1.0)
}

func TestEngineConfigValidation(t *testing.T) {
	_, err := NewEngine(WithInitialCapital(0))
	assert.True(t, models.IsInvalidInput(err))
	_, err = NewEngine(WithSlippage(1))
	assert.True(t, models.IsInvalidInput(err))
	_, err = NewEngine(WithPositionFraction(0))
	assert.True(t, models.IsInvalidInput(err))
}

func TestMaxDrawdownAndSharpe(t *testing.T) {
	curve := func(vals ...float64) []models.EquityPoint {
		out := make([]models.EquityPoint, len(vals))
		for i, v := range vals {
			out[i] = models.EquityPoint{Equity: v}
		}
		return out
	}
	assert.InDelta(t, 0.5, MaxDrawdown(100, curve(100, 120, 90, 130, 65)), 1e-12)
	assert.InDelta(t, 0.5, MaxDrawdown(0, curve(100, 120, 90, 130, 65)), 1e-12)

	// a loss on the first bar is measured against the starting capital
	assert.InDelta(t, 1-9128.96/10000, MaxDrawdown(10000, curve(9519.05, 9300, 9128.96)), 1e-12)
	assert.InDelta(t, 0.5, MaxDrawdown(10000, curve(5000, 12000, 11000)), 1e-12)
	assert.Equal(t, 0.0, Sharpe(curve(100, 100, 100), 252))
	assert.Greater(t, Sharpe(curve(100, 101, 103, 104, 106), 252), 0.0)
}
