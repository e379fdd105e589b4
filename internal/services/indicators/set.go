package indicators

import (
	"FinScope/internal/domain/models"
)

// Snapshot is the indicator state at one bar.
type Snapshot = models.IndicatorSnapshot

// Config holds the periods used by Compute.
type Config struct {
	SMAShort         int
	SMALong          int
	EMAFast          int
	EMASlow          int
	MACDSignal       int
	RSI              int
	Bollinger        int
	BollingerK       float64
	Stochastic       int
	StochasticD      int
	Williams         int
	OBVLookback      int
	VolatilityWindow int
	BarsPerYear      float64
}

type Option func(*Config)

// DefaultConfig returns the conventional periods for daily bars.
func DefaultConfig() Config {
	return Config{
		SMAShort:         20,
		SMALong:          50,
		EMAFast:          12,
		EMASlow:          26,
		MACDSignal:       9,
		RSI:              14,
		Bollinger:        20,
		BollingerK:       2,
		Stochastic:       14,
		StochasticD:      3,
		Williams:         14,
		OBVLookback:      5,
		VolatilityWindow: 20,
		BarsPerYear:      252,
	}
}

func WithSMA(short, long int) Option {
	return func(c *Config) {
		c.SMAShort = short
		c.SMALong = long
	}
}

func WithMACD(fast, slow, signal int) Option {
	return func(c *Config) {
		c.EMAFast = fast
		c.EMASlow = slow
		c.MACDSignal = signal
	}
}

func WithRSI(period int) Option {
	return func(c *Config) { c.RSI = period }
}

func WithBollinger(period int, k float64) Option {
	return func(c *Config) {
		c.Bollinger = period
		c.BollingerK = k
	}
}

func WithStochastic(k, d int) Option {
	return func(c *Config) {
		c.Stochastic = k
		c.StochasticD = d
	}
}

func WithWilliams(period int) Option {
	return func(c *Config) { c.Williams = period }
}

func WithOBVLookback(n int) Option {
	return func(c *Config) { c.OBVLookback = n }
}

// WithVolatility sets the realized volatility window and the annualisation factor.
// A non-positive argument leaves the current value in place.
func WithVolatility(window int, barsPerYear float64) Option {
	return func(c *Config) {
		if window > 0 {
			c.VolatilityWindow = window
		}
		if barsPerYear > 0 {
			c.BarsPerYear = barsPerYear
		}
	}
}

// Set is every indicator computed over one price series.
type Set struct {
	Config     Config
	Bars       int
	Closes     []float64
	SMAShort   Series
	SMALong    Series
	EMAFast    Series
	EMASlow    Series
	RSI        Series
	MACD       MACDResult
	Bollinger  BollingerResult
	Stochastic StochasticResult
	WilliamsR  Series
	OBV        Series
	OBVChange  Series
	Volatility Series

	dense map[string][]float64
}

// Compute runs every indicator over points, which must already be in time order.
func Compute(points []models.PricePoint, opts ...Option) *Set {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cols := models.Columns(points)
	s := &Set{
		Config:     cfg,
		Bars:       len(points),
		Closes:     cols.Closes,
		SMAShort:   SMA(cols.Closes, cfg.SMAShort),
		SMALong:    SMA(cols.Closes, cfg.SMALong),
		EMAFast:    EMA(cols.Closes, cfg.EMAFast),
		EMASlow:    EMA(cols.Closes, cfg.EMASlow),
		RSI:        RSI(cols.Closes, cfg.RSI),
		MACD:       MACD(cols.Closes, cfg.EMAFast, cfg.EMASlow, cfg.MACDSignal),
		Bollinger:  Bollinger(cols.Closes, cfg.Bollinger, cfg.BollingerK),
		Stochastic: Stochastic(cols.Highs, cols.Lows, cols.Closes, cfg.Stochastic, cfg.StochasticD),
		WilliamsR:  WilliamsR(cols.Highs, cols.Lows, cols.Closes, cfg.Williams),
		OBV:        OBV(cols.Closes, cols.Volumes),
		Volatility: RollingVolatility(cols.Closes, cfg.VolatilityWindow, cfg.BarsPerYear),
	}
	s.OBVChange = Change(s.OBV, cfg.OBVLookback)

	n := s.Bars
	s.dense = map[string][]float64{
		"sma_short": dense(s.SMAShort, n),
		"sma_long":  dense(s.SMALong, n),
		"ema_fast":  dense(s.EMAFast, n),
		"ema_slow":  dense(s.EMASlow, n),
		"rsi":       dense(s.RSI, n),
		"macd":      dense(s.MACD.MACD, n),
		"signal":    dense(s.MACD.Signal, n),
		"hist":      dense(s.MACD.Histogram, n),
		"bb_upper":  dense(s.Bollinger.Upper, n),
		"bb_middle": dense(s.Bollinger.Middle, n),
		"bb_lower":  dense(s.Bollinger.Lower, n),
		"stoch_k":   dense(s.Stochastic.K, n),
		"stoch_d":   dense(s.Stochastic.D, n),
		"williams":  dense(s.WilliamsR, n),
		"obv":       dense(s.OBV, n),
		"obv_chg":   dense(s.OBVChange, n),
		"vol":       dense(s.Volatility, n),
	}
	return s
}

// SnapshotAt returns the values aligned to bar i. Out of range yields an empty snapshot.
func (s *Set) SnapshotAt(i int) Snapshot {
	snap := Snapshot{Index: i}
	if i < 0 || i >= s.Bars {
		return snap
	}
	d := s.dense
	snap.Close = s.Closes[i]
	snap.SMAShort = valueAt(d["sma_short"], i)
	snap.SMALong = valueAt(d["sma_long"], i)
	snap.EMAFast = valueAt(d["ema_fast"], i)
	snap.EMASlow = valueAt(d["ema_slow"], i)
	snap.RSI = valueAt(d["rsi"], i)
	snap.MACD = valueAt(d["macd"], i)
	snap.MACDSignal = valueAt(d["signal"], i)
	snap.MACDHistogram = valueAt(d["hist"], i)
	snap.PrevMACD = valueAt(d["macd"], i-1)
	snap.PrevMACDSignal = valueAt(d["signal"], i-1)
	snap.BollingerUpper = valueAt(d["bb_upper"], i)
	snap.BollingerMiddle = valueAt(d["bb_middle"], i)
	snap.BollingerLower = valueAt(d["bb_lower"], i)
	snap.StochK = valueAt(d["stoch_k"], i)
	snap.StochD = valueAt(d["stoch_d"], i)
	snap.WilliamsR = valueAt(d["williams"], i)
	snap.OBV = valueAt(d["obv"], i)
	snap.OBVChange = valueAt(d["obv_chg"], i)
	snap.Volatility = valueAt(d["vol"], i)
	return snap
}

// Latest is the snapshot at the final bar.
func (s *Set) Latest() (Snapshot, bool) {
	if s.Bars == 0 {
		return Snapshot{Index: -1}, false
	}
	return s.SnapshotAt(s.Bars - 1), true
}

// All lists every series by name, for API output.
func (s *Set) All() []Series {
	return []Series{
		s.SMAShort, s.SMALong, s.EMAFast, s.EMASlow, s.RSI,
		s.MACD.MACD, s.MACD.Signal, s.MACD.Histogram,
		s.Bollinger.Upper, s.Bollinger.Middle, s.Bollinger.Lower,
		s.Stochastic.K, s.Stochastic.D, s.WilliamsR, s.OBV, s.Volatility,
	}
}
