package repository

// Interval is the bar resolution of a price series.
type Interval string

const (
	IV1h  Interval = "1h"
	IV1d  Interval = "1d"
	IV1wk Interval = "1wk"
)

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case IV1h, IV1d, IV1wk:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the default interval.
func DefaultInterval() Interval { return IV1d }

// NormalizeInterval converts raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	if s == "" {
		return DefaultInterval()
	}
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return DefaultInterval()
}

// BarsPerYear is used to annualise per-bar statistics.
func (iv Interval) BarsPerYear() float64 {
	switch iv {
	case IV1h:
		return 252 * 6.5
	case IV1wk:
		return 52
	default:
		return 252
	}
}
