package backtest

import (
	"math"

	"FinScope/internal/domain/models"
	"FinScope/pkg/util"
)

func computeStats(cfg Config, s *simState, bars []models.PricePoint) models.BacktestStats {
	st := models.BacktestStats{
		InitialCapital:  cfg.InitialCapital,
		FinalEquity:     cfg.InitialCapital,
		TotalTrades:     len(s.trades),
		TotalCommission: s.totalCommission,
		TotalSlippage:   s.totalSlippage,
	}
	if n := len(s.equity); n > 0 {
		st.FinalEquity = s.equity[n-1].Equity
		st.Exposure = float64(s.barsInMarket) / float64(n)
	}
	st.TotalReturn = st.FinalEquity/cfg.InitialCapital - 1
	if len(bars) > 0 {
		st.BuyAndHold = bars[len(bars)-1].Close/bars[0].Close - 1
	}

	profit, loss, sumRet := 0.0, 0.0, 0.0
	for _, t := range s.trades {
		switch {
		case t.PnL > 0:
			st.WinningTrades++
			profit += t.PnL
		case t.PnL < 0:
			st.LosingTrades++
			loss -= t.PnL
		}
		sumRet += t.ReturnPct
	}
	if st.TotalTrades > 0 {
		st.WinRate = float64(st.WinningTrades) / float64(st.TotalTrades)
		st.AvgTradeReturn = sumRet / float64(st.TotalTrades)
	}
	if loss > 0 {
		pf := profit / loss
		st.ProfitFactor = &pf
	}
	st.MaxDrawdown = MaxDrawdown(cfg.InitialCapital, s.equity)
	st.Sharpe = Sharpe(s.equity, cfg.BarsPerYear)
	return st
}

// MaxDrawdown is the largest peak-to-trough fall of equity, as a fraction of the peak.
// The starting capital counts as the first peak.
func MaxDrawdown(start float64, curve []models.EquityPoint) float64 {
	peak, maxDD := max(start, 0), 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Sharpe annualises the mean over the deviation of per-bar equity returns, risk-free rate zero.
func Sharpe(curve []models.EquityPoint, barsPerYear float64) float64 {
	rets := make([]float64, 0, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		rets = append(rets, curve[i].Equity/prev-1)
	}
	sd := util.StdDev(rets)
	if sd == 0 {
		return 0
	}
	return util.Mean(rets) / sd * math.Sqrt(barsPerYear)
}
