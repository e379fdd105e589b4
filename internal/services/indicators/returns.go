package indicators

import (
	"math"

	"FinScope/pkg/util"
)

// LogReturns computes r_t = ln(C_t / C_{t-1}) aligned to bar t.
// Pairs with a non-positive or non-finite close are skipped.
func LogReturns(closes []float64) Series {
	out := Series{Name: "log_return"}
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if !util.Finite(prev) || !util.Finite(cur) || prev <= 0 || cur <= 0 {
			continue
		}
		out.Points = append(out.Points, Point{Index: i, Value: math.Log(cur / prev)})
	}
	return out
}

// RealizedVolatility is the annualized sample deviation of the given log returns.
func RealizedVolatility(logReturns []float64, barsPerYear float64) float64 {
	if len(logReturns) < 2 {
		return 0
	}
	return util.StdDev(logReturns) * math.Sqrt(barsPerYear)
}

// RollingVolatility computes realized volatility over each window of consecutive returns.
// A return missing inside the window leaves that bar undefined.
func RollingVolatility(closes []float64, window int, barsPerYear float64) Series {
	out := Series{Name: "volatility"}
	if window <= 1 {
		return out
	}
	r := LogReturns(closes)
	for j := window - 1; j < len(r.Points); j++ {
		first := r.Points[j-window+1]
		last := r.Points[j]
		if last.Index-first.Index != window-1 {
			continue
		}
		vals := make([]float64, window)
		for k := 0; k < window; k++ {
			vals[k] = r.Points[j-window+1+k].Value
		}
		out.Points = append(out.Points, Point{Index: last.Index, Value: RealizedVolatility(vals, barsPerYear)})
	}
	return out
}
