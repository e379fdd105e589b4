package indicators

import "FinScope/pkg/util"

// OBV is on-balance volume starting at 0 on the first finite bar.
// Bars with non-finite close or volume are skipped.
func OBV(closes, volumes []float64) Series {
	out := Series{Name: "obv"}
	n := len(closes)
	if len(volumes) < n {
		n = len(volumes)
	}
	obv := 0.0
	prev := 0.0
	started := false
	for i := 0; i < n; i++ {
		c, v := closes[i], volumes[i]
		if !util.Finite(c) || !util.Finite(v) {
			continue
		}
		if started {
			switch {
			case c > prev:
				obv += v
			case c < prev:
				obv -= v
			}
		}
		started = true
		prev = c
		out.Points = append(out.Points, Point{Index: i, Value: obv})
	}
	return out
}

// Change is the difference of each point against the one lookback points earlier.
func Change(s Series, lookback int) Series {
	out := Series{Name: s.Name + "_change"}
	if lookback <= 0 {
		return out
	}
	for j := lookback; j < len(s.Points); j++ {
		out.Points = append(out.Points, Point{Index: s.Points[j].Index, Value: s.Points[j].Value - s.Points[j-lookback].Value})
	}
	return out
}
