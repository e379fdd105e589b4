package indicators

import (
	"fmt"
	"math"

	"FinScope/pkg/util"
)

// BollingerResult holds the three bands.
type BollingerResult struct {
	Upper  Series `json:"upper"`
	Middle Series `json:"middle"`
	Lower  Series `json:"lower"`
}

// Bollinger bands: middle SMA(p), upper and lower at |k| population standard deviations.
func Bollinger(closes []float64, period int, k float64) BollingerResult {
	res := BollingerResult{
		Upper:  Series{Name: fmt.Sprintf("bb_upper_%d", period)},
		Middle: Series{Name: fmt.Sprintf("bb_middle_%d", period)},
		Lower:  Series{Name: fmt.Sprintf("bb_lower_%d", period)},
	}
	if period <= 0 || len(closes) < period || !util.Finite(k) {
		return res
	}
	k = math.Abs(k)
	for i := period - 1; i < len(closes); i++ {
		if !windowFinite(closes, i-period+1, i) {
			continue
		}
		w := closes[i-period+1 : i+1]
		mid := util.Mean(w)
		dev := k * util.PopStdDev(w)
		res.Middle.Points = append(res.Middle.Points, Point{Index: i, Value: mid})
		res.Upper.Points = append(res.Upper.Points, Point{Index: i, Value: mid + dev})
		res.Lower.Points = append(res.Lower.Points, Point{Index: i, Value: mid - dev})
	}
	return res
}
