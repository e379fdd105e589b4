package models

import "time"

// Trade is one closed round trip. Entry always precedes exit.
type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitTime   time.Time `json:"exit_time"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	Commission float64   `json:"commission"`
	Slippage   float64   `json:"slippage"`
	PnL        float64   `json:"pnl"`
	ReturnPct  float64   `json:"return_pct"`
	ForcedExit bool      `json:"forced_exit"`
}

// EquityPoint is the account value after one bar.
type EquityPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Equity        float64   `json:"equity"`
	Cash          float64   `json:"cash"`
	PositionValue float64   `json:"position_value"`
}

// BacktestStats are the performance figures of one run. Ratios are fractions, not percent.
// ProfitFactor is nil when no trade lost money.
type BacktestStats struct {
	InitialCapital  float64  `json:"initial_capital"`
	FinalEquity     float64  `json:"final_equity"`
	TotalReturn     float64  `json:"total_return"`
	BuyAndHold      float64  `json:"buy_and_hold_return"`
	TotalTrades     int      `json:"total_trades"`
	WinningTrades   int      `json:"winning_trades"`
	LosingTrades    int      `json:"losing_trades"`
	WinRate         float64  `json:"win_rate"`
	MaxDrawdown     float64  `json:"max_drawdown"`
	Sharpe          float64  `json:"sharpe"`
	ProfitFactor    *float64 `json:"profit_factor,omitempty"`
	AvgTradeReturn  float64  `json:"avg_trade_return"`
	TotalCommission float64  `json:"total_commission"`
	TotalSlippage   float64  `json:"total_slippage"`
	Exposure        float64  `json:"exposure"`
}

// BacktestResult is the outcome of replaying one strategy over one series.
type BacktestResult struct {
	ID          string        `json:"id,omitempty"`
	Symbol      string        `json:"symbol"`
	Strategy    string        `json:"strategy"`
	From        time.Time     `json:"from"`
	To          time.Time     `json:"to"`
	Bars        int           `json:"bars"`
	SkippedBars int           `json:"skipped_bars"`
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Stats       BacktestStats `json:"stats"`
}

// RuleSpec is the declarative form of an entry or exit rule.
// Composite kinds ("all", "any") use Rules; the others use Threshold where they need one.
type RuleSpec struct {
	Kind      string     `json:"kind" yaml:"kind"`
	Threshold *float64   `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Rules     []RuleSpec `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// StrategyDefinition is what a strategy catalog hands to the backtesting engine.
type StrategyDefinition struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Entry       RuleSpec `json:"entry" yaml:"entry"`
	Exit        RuleSpec `json:"exit" yaml:"exit"`
}
