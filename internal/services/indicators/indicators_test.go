package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
)

func bars(closes []float64) []models.PricePoint {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = models.PricePoint{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return out
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestSMA(t *testing.T) {
	s := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.Equal(t, []Point{{2, 2}, {3, 3}, {4, 4}}, s.Points)

	assert.Empty(t, SMA([]float64{1, 2}, 3).Points)
	assert.Empty(t, SMA([]float64{1, 2, 3}, 0).Points)
}

func TestSMASkipsWindowsWithNaN(t *testing.T) {
	s := SMA([]float64{1, math.NaN(), 3, 4, 5}, 2)
	assert.Equal(t, []Point{{3, 3.5}, {4, 4.5}}, s.Points)
}

func TestEMA(t *testing.T) {
	s := EMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, s.Points, 3)
	assert.Equal(t, 2, s.Points[0].Index)
	assert.InDelta(t, 2, s.Points[0].Value, 1e-12)
	assert.InDelta(t, 3, s.Points[1].Value, 1e-12)
	assert.InDelta(t, 4, s.Points[2].Value, 1e-12)
}

func TestRSI(t *testing.T) {
	s := RSI([]float64{10, 11, 10, 11}, 2)
	require.Len(t, s.Points, 2)
	assert.Equal(t, 2, s.Points[0].Index)
	assert.InDelta(t, 50, s.Points[0].Value, 1e-9)
	assert.InDelta(t, 75, s.Points[1].Value, 1e-9)
}

func TestRSIEdgeCases(t *testing.T) {
	flat := RSI(linear(20, 5, 0), 14)
	require.Len(t, flat.Points, 6)
	for _, p := range flat.Points {
		assert.Equal(t, 50.0, p.Value)
	}

	up := RSI(linear(20, 5, 1), 14)
	last, ok := up.Last()
	require.True(t, ok)
	assert.Equal(t, 100.0, last.Value)

	down := RSI(linear(20, 50, -1), 14)
	last, _ = down.Last()
	assert.Equal(t, 0.0, last.Value)

	assert.Empty(t, RSI(linear(14, 5, 1), 14).Points, "needs p+1 closes")
}

func TestMACD(t *testing.T) {
	res := MACD(linear(40, 10, 0), 12, 26, 9)
	require.Len(t, res.MACD.Points, 15)
	require.Len(t, res.Signal.Points, 7)
	require.Len(t, res.Histogram.Points, 7)
	assert.Equal(t, 25, res.MACD.Points[0].Index)
	assert.Equal(t, 33, res.Signal.Points[0].Index)
	for _, p := range res.Histogram.Points {
		assert.InDelta(t, 0, p.Value, 1e-9)
	}

	bad := MACD(linear(40, 10, 1), 26, 12, 9)
	assert.Empty(t, bad.MACD.Points)
}

func TestBollinger(t *testing.T) {
	res := Bollinger([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, -2)
	require.Len(t, res.Middle.Points, 1)
	assert.InDelta(t, 5, res.Middle.Points[0].Value, 1e-12)
	assert.InDelta(t, 9, res.Upper.Points[0].Value, 1e-12)
	assert.InDelta(t, 1, res.Lower.Points[0].Value, 1e-12)

	flat := Bollinger(linear(25, 3, 0), 20, 2)
	for i := range flat.Middle.Points {
		assert.Equal(t, flat.Middle.Points[i].Value, flat.Upper.Points[i].Value)
		assert.Equal(t, flat.Middle.Points[i].Value, flat.Lower.Points[i].Value)
	}
}

func TestStochasticAndWilliams(t *testing.T) {
	flat := linear(5, 10, 0)
	st := Stochastic(flat, flat, flat, 3, 3)
	require.Len(t, st.K.Points, 3)
	for _, p := range st.K.Points {
		assert.Equal(t, 50.0, p.Value)
	}
	require.Len(t, st.D.Points, 1)
	assert.Equal(t, 4, st.D.Points[0].Index)
	assert.Equal(t, 50.0, st.D.Points[0].Value)

	wr := WilliamsR(flat, flat, flat, 3)
	for _, p := range wr.Points {
		assert.Equal(t, -50.0, p.Value)
	}

	highs := []float64{10, 12, 11}
	lows := []float64{8, 9, 7}
	closes := []float64{9, 11, 7}
	k := Stochastic(highs, lows, closes, 3, 3).K
	require.Len(t, k.Points, 1)
	assert.InDelta(t, 0, k.Points[0].Value, 1e-12)
	w := WilliamsR(highs, lows, closes, 3)
	assert.InDelta(t, -100, w.Points[0].Value, 1e-12)
}

func TestOBV(t *testing.T) {
	s := OBV([]float64{10, 11, 11, 10}, []float64{100, 200, 300, 400})
	assert.Equal(t, []float64{0, 200, 200, -200}, s.Values())

	chg := Change(s, 2)
	assert.Equal(t, []Point{{2, 200}, {3, -400}}, chg.Points)
}

func TestRollingVolatility(t *testing.T) {
	flat := RollingVolatility(linear(30, 10, 0), 20, 252)
	require.NotEmpty(t, flat.Points)
	assert.Equal(t, 0.0, flat.Points[0].Value)
	assert.Equal(t, 20, flat.Points[0].Index)

	closes := linear(30, 10, 0)
	closes[25] = math.NaN()
	gap := RollingVolatility(closes, 20, 252)
	for _, p := range gap.Points {
		assert.Less(t, p.Index, 25)
	}
}

func TestSeriesNeverLongerThanInput(t *testing.T) {
	for _, n := range []int{0, 1, 5, 30, 80} {
		set := Compute(bars(linear(n, 100, 0.5)))
		for _, s := range set.All() {
			assert.LessOrEqual(t, s.Len(), n, s.Name)
		}
	}
}

func TestComputeSnapshots(t *testing.T) {
	set := Compute(bars(linear(60, 100, 1)))

	first := set.SnapshotAt(0)
	assert.Nil(t, first.SMAShort)
	assert.Nil(t, first.RSI)
	assert.NotNil(t, first.OBV)

	last, ok := set.Latest()
	require.True(t, ok)
	require.NotNil(t, last.SMALong)
	require.NotNil(t, last.RSI)
	assert.Equal(t, 159.0, last.Close)
	assert.InDelta(t, 134.5, *last.SMALong, 1e-9)
	assert.Equal(t, 100.0, *last.RSI)
	assert.NotNil(t, last.PrevMACD)

	out := set.SnapshotAt(99)
	assert.Nil(t, out.RSI)

	_, ok = Compute(nil).Latest()
	assert.False(t, ok)
}

func TestComputeOptions(t *testing.T) {
	set := Compute(bars(linear(30, 100, 1)), WithSMA(5, 10), WithRSI(7), WithBollinger(10, 1))
	assert.Equal(t, 26, set.SMAShort.Len())
	assert.Equal(t, 21, set.SMALong.Len())
	assert.Equal(t, 23, set.RSI.Len())
	assert.Equal(t, 21, set.Bollinger.Middle.Len())
}

func TestTechnicalScore(t *testing.T) {
	assert.Equal(t, 0.5, TechnicalScore(Snapshot{}).Score)

	oversold := TechnicalScore(Snapshot{RSI: ptr(20)})
	assert.Equal(t, 1.0, oversold.Score)
	overbought := TechnicalScore(Snapshot{RSI: ptr(80)})
	assert.Equal(t, 0.0, overbought.Score)

	base := Snapshot{RSI: ptr(50), StochK: ptr(50)}
	neutral := TechnicalScore(base).Score
	assert.Equal(t, 0.5, neutral)

	base.StochK = ptr(10)
	oneBull := TechnicalScore(base).Score
	assert.Greater(t, oneBull, neutral)

	base.RSI = ptr(25)
	assert.Greater(t, TechnicalScore(base).Score, oneBull)

	base.RSI = ptr(75)
	assert.Less(t, TechnicalScore(base).Score, oneBull)
}

func TestDecliningSeriesScoresAboveNeutral(t *testing.T) {
	set := Compute(bars(linear(80, 200, -1)))
	ta := Analyze(set)
	require.NotNil(t, ta.Snapshot.RSI)
	assert.Equal(t, 0.0, *ta.Snapshot.RSI)
	assert.Greater(t, ta.Score, 0.5)
	assert.LessOrEqual(t, ta.Score, 1.0)
}

func TestNoisyDeclineFiftyBars(t *testing.T) {
	// 100, 101, 99, then a zigzag slide from 98 down to 70
	closes := []float64{100, 101, 99}
	for j := 0; j < 47; j++ {
		v := 98 - 28*float64(j)/46
		if j > 0 && j < 46 {
			if j%2 == 1 {
				v += 0.4
			} else {
				v -= 0.4
			}
		}
		closes = append(closes, v)
	}
	require.Len(t, closes, 50)
	require.InDelta(t, 70, closes[49], 1e-9)

	ta := Analyze(Compute(bars(closes)))
	require.NotNil(t, ta.Snapshot.RSI)
	assert.Less(t, *ta.Snapshot.RSI, 30.0)
	require.NotNil(t, ta.Snapshot.SMALong, "50 bars cover the long average")
	assert.Greater(t, ta.Score, 0.5, "oversold tilt outweighs the falling trend")
	assert.Equal(t, models.Bearish, Trend(Compute(bars(closes))))
}

func TestScoreBounded(t *testing.T) {
	snaps := []Snapshot{
		{Close: 1, RSI: ptr(1), SMAShort: ptr(2), SMALong: ptr(3), MACD: ptr(-1), MACDSignal: ptr(0),
			BollingerLower: ptr(2), BollingerUpper: ptr(5), StochK: ptr(1), WilliamsR: ptr(-99), OBVChange: ptr(-5)},
		{Close: 10, RSI: ptr(99), SMAShort: ptr(9), SMALong: ptr(8), MACD: ptr(1), MACDSignal: ptr(0),
			BollingerLower: ptr(2), BollingerUpper: ptr(5), StochK: ptr(99), WilliamsR: ptr(-1), OBVChange: ptr(5)},
	}
	for _, s := range snaps {
		sc := TechnicalScore(s).Score
		assert.GreaterOrEqual(t, sc, 0.0)
		assert.LessOrEqual(t, sc, 1.0)
	}
}

func TestTrend(t *testing.T) {
	assert.Equal(t, models.Bullish, Trend(Compute(bars(linear(80, 100, 1)))))
	assert.Equal(t, models.Bearish, Trend(Compute(bars(linear(80, 200, -1)))))
	assert.Equal(t, models.Neutral, Trend(Compute(bars(linear(30, 100, 1)))), "shorter than the long average")

	flat := make([]float64, 80)
	for i := range flat {
		flat[i] = 100
	}
	assert.Equal(t, models.Neutral, Trend(Compute(bars(flat))))
}
