package indicators

import (
	"math"
	"sort"

	"FinScope/pkg/util"
)

// Point is one defined indicator value, aligned to the input bar at Index.
type Point struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Series is an indicator output. Indices where the indicator is undefined are absent,
// so a series is never longer than its input.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Len returns the number of defined points.
func (s Series) Len() int { return len(s.Points) }

// At returns the value aligned to bar i.
func (s Series) At(i int) (float64, bool) {
	j := sort.Search(len(s.Points), func(k int) bool { return s.Points[k].Index >= i })
	if j < len(s.Points) && s.Points[j].Index == i {
		return s.Points[j].Value, true
	}
	return 0, false
}

// Last returns the most recent defined point.
func (s Series) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Values drops the alignment.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// dense spreads a series over n bars with NaN where undefined.
func dense(s Series, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	for _, p := range s.Points {
		if p.Index >= 0 && p.Index < n {
			out[p.Index] = p.Value
		}
	}
	return out
}

// finitePoints turns raw values into points, dropping non-finite bars.
func finitePoints(values []float64) []Point {
	out := make([]Point, 0, len(values))
	for i, v := range values {
		if util.Finite(v) {
			out = append(out, Point{Index: i, Value: v})
		}
	}
	return out
}

func windowFinite(values []float64, from, to int) bool {
	for i := from; i <= to; i++ {
		if !util.Finite(values[i]) {
			return false
		}
	}
	return true
}

func ptr(v float64) *float64 { return &v }

// valueAt returns a pointer to the dense value at i, nil when undefined.
func valueAt(d []float64, i int) *float64 {
	if i < 0 || i >= len(d) || math.IsNaN(d[i]) {
		return nil
	}
	return ptr(d[i])
}
