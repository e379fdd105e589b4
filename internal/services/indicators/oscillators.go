package indicators

import (
	"fmt"

	"FinScope/pkg/util"
)

// RSI is Wilder's relative strength index. The first value needs p+1 finite closes;
// a window without any movement reads 50 and one without losses reads 100.
func RSI(closes []float64, period int) Series {
	out := Series{Name: fmt.Sprintf("rsi_%d", period)}
	pts := finitePoints(closes)
	if period <= 0 || len(pts) < period+1 {
		return out
	}
	gain, loss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		g, l := move(pts[i-1].Value, pts[i].Value)
		gain += g
		loss += l
	}
	gain /= float64(period)
	loss /= float64(period)
	out.Points = append(out.Points, Point{Index: pts[period].Index, Value: rsiValue(gain, loss)})

	p := float64(period)
	for i := period + 1; i < len(pts); i++ {
		g, l := move(pts[i-1].Value, pts[i].Value)
		gain = (gain*(p-1) + g) / p
		loss = (loss*(p-1) + l) / p
		out.Points = append(out.Points, Point{Index: pts[i].Index, Value: rsiValue(gain, loss)})
	}
	return out
}

func move(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(gain, loss float64) float64 {
	switch {
	case gain == 0 && loss == 0:
		return 50
	case loss == 0:
		return 100
	}
	rs := gain / loss
	return util.Clamp(100-100/(1+rs), 0, 100)
}

// MACDResult groups the three MACD lines.
type MACDResult struct {
	MACD      Series `json:"macd"`
	Signal    Series `json:"signal"`
	Histogram Series `json:"histogram"`
}

// MACD is EMA(fast) - EMA(slow) with an EMA(signal) of the difference.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	res := MACDResult{
		MACD:      Series{Name: "macd"},
		Signal:    Series{Name: "macd_signal"},
		Histogram: Series{Name: "macd_histogram"},
	}
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return res
	}
	f := EMA(closes, fast)
	s := EMA(closes, slow)
	for _, sp := range s.Points {
		if fv, ok := f.At(sp.Index); ok {
			res.MACD.Points = append(res.MACD.Points, Point{Index: sp.Index, Value: fv - sp.Value})
		}
	}
	res.Signal.Points = emaPoints(res.MACD.Points, signal)
	for _, sg := range res.Signal.Points {
		m, _ := res.MACD.At(sg.Index)
		res.Histogram.Points = append(res.Histogram.Points, Point{Index: sg.Index, Value: m - sg.Value})
	}
	return res
}

// StochasticResult holds %K and its smoothed %D.
type StochasticResult struct {
	K Series `json:"k"`
	D Series `json:"d"`
}

// Stochastic computes %K over a p-bar high/low window and %D as the SMA of %K.
// A flat window reads 50.
func Stochastic(highs, lows, closes []float64, period, dPeriod int) StochasticResult {
	res := StochasticResult{
		K: Series{Name: fmt.Sprintf("stoch_k_%d", period)},
		D: Series{Name: fmt.Sprintf("stoch_d_%d", dPeriod)},
	}
	eachRange(highs, lows, closes, period, func(i int, hh, ll, c float64) {
		k := 50.0
		if r := hh - ll; r > 0 {
			k = util.Clamp(100*(c-ll)/r, 0, 100)
		}
		res.K.Points = append(res.K.Points, Point{Index: i, Value: k})
	})
	res.D.Points = smaPoints(res.K.Points, dPeriod)
	return res
}

// WilliamsR reads in [-100, 0]; a flat window reads -50.
func WilliamsR(highs, lows, closes []float64, period int) Series {
	out := Series{Name: fmt.Sprintf("williams_r_%d", period)}
	eachRange(highs, lows, closes, period, func(i int, hh, ll, c float64) {
		w := -50.0
		if r := hh - ll; r > 0 {
			w = util.Clamp(-100*(hh-c)/r, -100, 0)
		}
		out.Points = append(out.Points, Point{Index: i, Value: w})
	})
	return out
}

// eachRange visits every complete, finite window with its highest high and lowest low.
func eachRange(highs, lows, closes []float64, period int, fn func(i int, hh, ll, c float64)) {
	n := len(closes)
	if len(highs) < n {
		n = len(highs)
	}
	if len(lows) < n {
		n = len(lows)
	}
	if period <= 0 || n < period {
		return
	}
	for i := period - 1; i < n; i++ {
		from := i - period + 1
		if !windowFinite(highs, from, i) || !windowFinite(lows, from, i) || !util.Finite(closes[i]) {
			continue
		}
		hh, ll := highs[from], lows[from]
		for j := from + 1; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		fn(i, hh, ll, closes[i])
	}
}
