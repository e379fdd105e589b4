package util

import "math"

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
    if v < lo {
        return lo
    }
    if v > hi {
        return hi
    }
    return v
}

// Round rounds to the given number of decimal places.
func Round(v float64, places int) float64 {
    mult := math.Pow(10, float64(places))
    return math.Round(v*mult) / mult
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
    return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Mean of values, 0 for empty input.
func Mean(values []float64) float64 {
    if len(values) == 0 {
        return 0
    }
    sum := 0.0
    for _, v := range values {
        sum += v
    }
    return sum / float64(len(values))
}

// StdDev is the sample standard deviation; 0 below two values.
func StdDev(values []float64) float64 {
    if len(values) < 2 {
        return 0
    }
    m := Mean(values)
    ss := 0.0
    for _, v := range values {
        d := v - m
        ss += d * d
    }
    return math.Sqrt(ss / float64(len(values)-1))
}

// PopStdDev is the population standard deviation.
func PopStdDev(values []float64) float64 {
    if len(values) == 0 {
        return 0
    }
    m := Mean(values)
    ss := 0.0
    for _, v := range values {
        d := v - m
        ss += d * d
    }
    return math.Sqrt(ss / float64(len(values)))
}

// PctChange returns the change from old to cur in percent, 0 when old is 0.
func PctChange(old, cur float64) float64 {
    if old == 0 {
        return 0
    }
    return (cur - old) / old * 100
}
