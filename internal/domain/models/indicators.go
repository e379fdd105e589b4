package models

// IndicatorSnapshot holds the indicator values aligned to one bar.
// A nil field means the indicator is undefined there (insufficient history), never zero.
type IndicatorSnapshot struct {
	Index           int      `json:"index"`
	Close           float64  `json:"close"`
	SMAShort        *float64 `json:"sma_short,omitempty"`
	SMALong         *float64 `json:"sma_long,omitempty"`
	EMAFast         *float64 `json:"ema_fast,omitempty"`
	EMASlow         *float64 `json:"ema_slow,omitempty"`
	RSI             *float64 `json:"rsi,omitempty"`
	MACD            *float64 `json:"macd,omitempty"`
	MACDSignal      *float64 `json:"macd_signal,omitempty"`
	MACDHistogram   *float64 `json:"macd_histogram,omitempty"`
	PrevMACD        *float64 `json:"prev_macd,omitempty"`
	PrevMACDSignal  *float64 `json:"prev_macd_signal,omitempty"`
	BollingerUpper  *float64 `json:"bollinger_upper,omitempty"`
	BollingerMiddle *float64 `json:"bollinger_middle,omitempty"`
	BollingerLower  *float64 `json:"bollinger_lower,omitempty"`
	StochK          *float64 `json:"stoch_k,omitempty"`
	StochD          *float64 `json:"stoch_d,omitempty"`
	WilliamsR       *float64 `json:"williams_r,omitempty"`
	OBV             *float64 `json:"obv,omitempty"`
	OBVChange       *float64 `json:"obv_change,omitempty"`
	Volatility      *float64 `json:"volatility,omitempty"`
}

// MACDCross reports a signal-line crossover on this bar: 1 up, -1 down, 0 none or unknown.
func (s IndicatorSnapshot) MACDCross() int {
	if s.MACD == nil || s.MACDSignal == nil || s.PrevMACD == nil || s.PrevMACDSignal == nil {
		return 0
	}
	prev := *s.PrevMACD - *s.PrevMACDSignal
	cur := *s.MACD - *s.MACDSignal
	switch {
	case prev <= 0 && cur > 0:
		return 1
	case prev >= 0 && cur < 0:
		return -1
	}
	return 0
}
