package backtest

import (
	"time"

	"FinScope/internal/domain/models"
)

// simState carries the running totals of one replay.
type simState struct {
	cfg Config

	cash float64
	qty  float64
	long bool

	entryTime       time.Time
	entryFill       float64
	entryCost       float64
	entryCommission float64
	entrySlippage   float64

	barsInMarket    int
	skipped         int
	totalCommission float64
	totalSlippage   float64
	trades          []models.Trade
	equity          []models.EquityPoint
}

func newSimState(cfg Config) *simState {
	return &simState{cfg: cfg, cash: cfg.InitialCapital, trades: []models.Trade{}}
}

// open buys at close plus slippage with the configured share of cash.
// Nothing happens when the budget cannot cover the fixed fee.
func (s *simState) open(bar models.PricePoint) {
	fill := bar.Close * (1 + s.cfg.SlippageRate)
	budget := s.cash * s.cfg.PositionFraction
	qty := (budget - s.cfg.CommissionFixed) / (fill * (1 + s.cfg.CommissionRate))
	if qty <= 0 {
		return
	}
	notional := fill * qty
	commission := s.cfg.CommissionRate*notional + s.cfg.CommissionFixed

	s.cash -= notional + commission
	s.qty = qty
	s.long = true
	s.entryTime = bar.Timestamp
	s.entryFill = fill
	s.entryCost = notional + commission
	s.entryCommission = commission
	s.entrySlippage = (fill - bar.Close) * qty
	s.totalCommission += commission
	s.totalSlippage += s.entrySlippage
}

// close sells the whole position at close minus slippage and records the trade.
func (s *simState) close(bar models.PricePoint, forced bool) {
	fill := bar.Close * (1 - s.cfg.SlippageRate)
	proceeds := fill * s.qty
	commission := s.cfg.CommissionRate*proceeds + s.cfg.CommissionFixed
	slippage := (bar.Close - fill) * s.qty
	pnl := proceeds - commission - s.entryCost

	ret := 0.0
	if s.entryCost > 0 {
		ret = pnl / s.entryCost
	}
	s.trades = append(s.trades, models.Trade{
		EntryTime:  s.entryTime,
		EntryPrice: s.entryFill,
		ExitTime:   bar.Timestamp,
		ExitPrice:  fill,
		Quantity:   s.qty,
		Commission: s.entryCommission + commission,
		Slippage:   s.entrySlippage + slippage,
		PnL:        pnl,
		ReturnPct:  ret,
		ForcedExit: forced,
	})
	s.cash += proceeds - commission
	s.totalCommission += commission
	s.totalSlippage += slippage
	s.qty = 0
	s.long = false
}

// mark records end-of-bar equity at the bar's close.
func (s *simState) mark(bar models.PricePoint) {
	pos := s.qty * bar.Close
	if s.long {
		s.barsInMarket++
	}
	s.equity = append(s.equity, models.EquityPoint{
		Timestamp:     bar.Timestamp,
		Equity:        s.cash + pos,
		Cash:          s.cash,
		PositionValue: pos,
	})
}
