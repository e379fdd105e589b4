package backtest

import (
	"sort"
	"time"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/indicators"
	"FinScope/pkg/util"
)

// Config is the execution model of a run.
type Config struct {
	InitialCapital   float64
	CommissionRate   float64
	CommissionFixed  float64
	SlippageRate     float64
	PositionFraction float64
	BarsPerYear      float64
	Indicators       []indicators.Option
}

type Option func(*Config)

func WithInitialCapital(c float64) Option {
	return func(cfg *Config) { cfg.InitialCapital = c }
}

// WithCommission sets a proportional rate on notional plus a fixed fee per fill.
func WithCommission(rate, fixed float64) Option {
	return func(cfg *Config) {
		cfg.CommissionRate = rate
		cfg.CommissionFixed = fixed
	}
}

func WithSlippage(rate float64) Option {
	return func(cfg *Config) { cfg.SlippageRate = rate }
}

// WithPositionFraction sets the share of cash committed on each entry.
func WithPositionFraction(f float64) Option {
	return func(cfg *Config) { cfg.PositionFraction = f }
}

func WithBarsPerYear(n float64) Option {
	return func(cfg *Config) { cfg.BarsPerYear = n }
}

func WithIndicatorOptions(opts ...indicators.Option) Option {
	return func(cfg *Config) { cfg.Indicators = append(cfg.Indicators, opts...) }
}

// Engine replays strategies bar by bar. It holds no run state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

func NewEngine(opts ...Option) (*Engine, error) {
	cfg := Config{
		InitialCapital:   10000,
		CommissionRate:   0.001,
		SlippageRate:     0.0005,
		PositionFraction: 1,
		BarsPerYear:      252,
	}
	for _, o := range opts {
		o(&cfg)
	}
	switch {
	case !util.Finite(cfg.InitialCapital) || cfg.InitialCapital <= 0:
		return nil, models.Invalid("initial_capital", "must be positive")
	case !util.Finite(cfg.CommissionRate) || cfg.CommissionRate < 0 || cfg.CommissionRate >= 1:
		return nil, models.Invalid("commission_rate", "must be within [0,1)")
	case !util.Finite(cfg.CommissionFixed) || cfg.CommissionFixed < 0:
		return nil, models.Invalid("commission_fixed", "must not be negative")
	case !util.Finite(cfg.SlippageRate) || cfg.SlippageRate < 0 || cfg.SlippageRate >= 1:
		return nil, models.Invalid("slippage_rate", "must be within [0,1)")
	case !util.Finite(cfg.PositionFraction) || cfg.PositionFraction <= 0 || cfg.PositionFraction > 1:
		return nil, models.Invalid("position_fraction", "must be within (0,1]")
	case !util.Finite(cfg.BarsPerYear) || cfg.BarsPerYear <= 0:
		return nil, models.Invalid("bars_per_year", "must be positive")
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Run replays st over points. Points are sorted by time first; a repeated timestamp or a
// non-positive close is invalid input. An empty series returns an empty result.
func (e *Engine) Run(symbol string, points []models.PricePoint, st Strategy) (*models.BacktestResult, error) {
	if st.Entry == nil || st.Exit == nil {
		return nil, models.Invalid("strategy", "entry and exit rules are required")
	}
	bars := make([]models.PricePoint, len(points))
	copy(bars, points)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	for i, b := range bars {
		if i > 0 && b.Timestamp.Equal(bars[i-1].Timestamp) {
			return nil, models.Invalid("points", "duplicate timestamp %s", b.Timestamp.Format(time.RFC3339))
		}
		if !util.Finite(b.Close) || b.Close <= 0 {
			return nil, models.Invalid("points", "close at %s must be positive", b.Timestamp.Format(time.RFC3339))
		}
	}

	res := &models.BacktestResult{
		Symbol:      symbol,
		Strategy:    st.Name,
		Bars:        len(bars),
		Trades:      []models.Trade{},
		EquityCurve: make([]models.EquityPoint, 0, len(bars)),
	}
	if len(bars) == 0 {
		res.Stats = models.BacktestStats{InitialCapital: e.cfg.InitialCapital, FinalEquity: e.cfg.InitialCapital}
		return res, nil
	}
	res.From, res.To = bars[0].Timestamp, bars[len(bars)-1].Timestamp

	set := indicators.Compute(bars, e.cfg.Indicators...)
	state := newSimState(e.cfg)
	last := len(bars) - 1
	for i, bar := range bars {
		snap := set.SnapshotAt(i)
		if !state.long {
			if i < last {
				if sig, ok := st.Entry(bar, snap); !ok {
					state.skipped++
				} else if sig {
					state.open(bar)
				}
			}
		} else {
			if sig, ok := st.Exit(bar, snap); !ok {
				state.skipped++
			} else if sig {
				state.close(bar, false)
			}
		}
		if i == last && state.long {
			state.close(bar, true)
		}
		state.mark(bar)
	}

	res.Trades = state.trades
	res.EquityCurve = state.equity
	res.SkippedBars = state.skipped
	res.Stats = computeStats(e.cfg, state, bars)
	return res, nil
}
