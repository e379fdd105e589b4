package models

import "time"

// PricePoint is one OHLCV bar.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries splits bars into the column slices the indicator functions take.
type PriceSeries struct {
	Times   []time.Time
	Opens   []float64
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []float64
}

// Columns converts bars to column form, preserving order.
func Columns(points []PricePoint) PriceSeries {
	s := PriceSeries{
		Times:   make([]time.Time, len(points)),
		Opens:   make([]float64, len(points)),
		Highs:   make([]float64, len(points)),
		Lows:    make([]float64, len(points)),
		Closes:  make([]float64, len(points)),
		Volumes: make([]float64, len(points)),
	}
	for i, p := range points {
		s.Times[i] = p.Timestamp
		s.Opens[i] = p.Open
		s.Highs[i] = p.High
		s.Lows[i] = p.Low
		s.Closes[i] = p.Close
		s.Volumes[i] = p.Volume
	}
	return s
}

// LastClose returns the close of the final bar.
func LastClose(points []PricePoint) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}
	return points[len(points)-1].Close, true
}
