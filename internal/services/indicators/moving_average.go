package indicators

import "fmt"

// SMA is the simple moving average. Point i averages values[i-p+1..i];
// windows holding a non-finite value are skipped.
func SMA(values []float64, period int) Series {
	out := Series{Name: fmt.Sprintf("sma_%d", period)}
	if period <= 0 || len(values) < period {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		if !windowFinite(values, i-period+1, i) {
			continue
		}
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		out.Points = append(out.Points, Point{Index: i, Value: sum / float64(period)})
	}
	return out
}

// EMA is the exponential moving average seeded with the SMA of the first p finite values.
func EMA(values []float64, period int) Series {
	return Series{Name: fmt.Sprintf("ema_%d", period), Points: emaPoints(finitePoints(values), period)}
}

// emaPoints runs the recursion over already aligned points.
func emaPoints(in []Point, period int) []Point {
	if period <= 0 || len(in) < period {
		return nil
	}
	alpha := 2.0 / float64(period+1)
	seed := 0.0
	for _, p := range in[:period] {
		seed += p.Value
	}
	ema := seed / float64(period)
	out := make([]Point, 0, len(in)-period+1)
	out = append(out, Point{Index: in[period-1].Index, Value: ema})
	for _, p := range in[period:] {
		ema = alpha*p.Value + (1-alpha)*ema
		out = append(out, Point{Index: p.Index, Value: ema})
	}
	return out
}

// smaPoints averages consecutive points, aligned to the last one of each window.
func smaPoints(in []Point, period int) []Point {
	if period <= 0 || len(in) < period {
		return nil
	}
	out := make([]Point, 0, len(in)-period+1)
	for i := period - 1; i < len(in); i++ {
		sum := 0.0
		for _, p := range in[i-period+1 : i+1] {
			sum += p.Value
		}
		out = append(out, Point{Index: in[i].Index, Value: sum / float64(period)})
	}
	return out
}
