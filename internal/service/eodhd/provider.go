package eodhd

import (
	"context"
	"sort"
	"time"

	"FinScope/internal/domain/models"
	drepo "FinScope/internal/domain/repository"
	"FinScope/pkg/util"
)

// Provider adapts the client to the domain price and fundamentals interfaces.
type Provider struct {
	client *Client
	now    func() time.Time
}

func NewProvider(client *Client) *Provider {
	return &Provider{client: client, now: time.Now}
}

// GetPrices returns bars between from and to, oldest first. Bars with no positive close are dropped.
func (p *Provider) GetPrices(ctx context.Context, symbol string, from, to time.Time, iv drepo.Interval) ([]models.PricePoint, error) {
	switch iv {
	case drepo.IV1h:
		rows, err := p.client.GetIntraday(ctx, symbol, from, to)
		if err != nil {
			return nil, err
		}
		out := make([]models.PricePoint, 0, len(rows))
		for _, r := range rows {
			if r.Close <= 0 {
				continue
			}
			out = append(out, bar(time.Unix(r.Timestamp, 0).UTC(), r.Open, r.High, r.Low, r.Close, r.Volume))
		}
		return sortBars(out), nil
	default:
		period := "d"
		if iv == drepo.IV1wk {
			period = "w"
		}
		rows, err := p.client.GetEOD(ctx, symbol, period, from, to)
		if err != nil {
			return nil, err
		}
		out := make([]models.PricePoint, 0, len(rows))
		for _, r := range rows {
			ts, err := time.Parse(util.DateLayout, r.Date)
			if err != nil || r.Close <= 0 {
				continue
			}
			out = append(out, bar(ts, r.Open, r.High, r.Low, r.Close, r.Volume))
		}
		return sortBars(out), nil
	}
}

// GetPriceHistory returns at most limit of the most recent bars.
func (p *Provider) GetPriceHistory(ctx context.Context, symbol string, iv drepo.Interval, limit int) ([]models.PricePoint, error) {
	to := p.now().UTC()
	bars, err := p.GetPrices(ctx, symbol, util.LookbackStart(to, string(iv), limit), to, iv)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// GetFundamentals maps quarterly and yearly statements to reports.
func (p *Provider) GetFundamentals(ctx context.Context, symbol string) ([]models.FundamentalReport, error) {
	resp, err := p.client.GetFundamentals(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return Reports(symbol, resp), nil
}

// Reports flattens a fundamentals response, one report per statement date.
func Reports(symbol string, resp *FundamentalsResponse) []models.FundamentalReport {
	if resp == nil || resp.Financials == nil {
		return nil
	}
	var out []models.FundamentalReport
	out = append(out, reportsFor(symbol, resp, true)...)
	out = append(out, reportsFor(symbol, resp, false)...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReportDate.Equal(out[j].ReportDate) {
			return out[i].ReportDate.After(out[j].ReportDate)
		}
		return out[i].IsQuarterly() && !out[j].IsQuarterly()
	})
	return out
}

func reportsFor(symbol string, resp *FundamentalsResponse, quarterly bool) []models.FundamentalReport {
	fin := resp.Financials
	pick := func(s *Statement) objectMap[map[string]interface{}] {
		if s == nil {
			return nil
		}
		if quarterly {
			return s.Quarterly
		}
		return s.Yearly
	}
	income, balance, cash := pick(fin.IncomeStatement), pick(fin.BalanceSheet), pick(fin.CashFlow)

	var eps objectMap[EarningsEntry]
	var shares objectMap[SharesEntry]
	if resp.Earnings != nil {
		eps = resp.Earnings.Annual
		if quarterly {
			eps = resp.Earnings.History
		}
	}
	if resp.OutstandingShares != nil {
		shares = resp.OutstandingShares.Annual
		if quarterly {
			shares = resp.OutstandingShares.Quarterly
		}
	}
	shareCount := map[string]float64{}
	for _, e := range shares {
		shareCount[e.DateFormatted] = e.Shares
	}

	dates := map[string]struct{}{}
	for d := range income {
		dates[d] = struct{}{}
	}
	for d := range balance {
		dates[d] = struct{}{}
	}

	out := make([]models.FundamentalReport, 0, len(dates))
	for d := range dates {
		ts, err := time.Parse(util.DateLayout, d)
		if err != nil {
			continue
		}
		r := models.FundamentalReport{
			Symbol:            symbol,
			ReportDate:        ts,
			Year:              ts.Year(),
			Revenue:           number(income[d], "totalRevenue"),
			NetIncome:         number(income[d], "netIncome", "netIncomeApplicableToCommonShares"),
			TotalAssets:       number(balance[d], "totalAssets"),
			TotalLiabilities:  number(balance[d], "totalLiab"),
			TotalEquity:       number(balance[d], "totalStockholderEquity"),
			OperatingCashFlow: number(cash[d], "totalCashFromOperatingActivities"),
			SharesOutstanding: number(balance[d], "commonStockSharesOutstanding"),
		}
		if quarterly {
			q := (int(ts.Month())-1)/3 + 1
			r.Quarter = &q
		}
		if e, ok := eps[d]; ok && e.EPSActual != nil {
			v := *e.EPSActual
			r.EPS = &v
		}
		if r.SharesOutstanding == nil {
			if n, ok := shareCount[d]; ok && n > 0 {
				r.SharesOutstanding = &n
			}
		}
		if r.EPS == nil && r.NetIncome != nil && r.SharesOutstanding != nil && *r.SharesOutstanding > 0 {
			v := *r.NetIncome / *r.SharesOutstanding
			r.EPS = &v
		}
		out = append(out, r)
	}
	return out
}

func bar(ts time.Time, o, h, l, c, v float64) models.PricePoint {
	return models.PricePoint{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func sortBars(b []models.PricePoint) []models.PricePoint {
	sort.SliceStable(b, func(i, j int) bool { return b[i].Timestamp.Before(b[j].Timestamp) })
	return b
}

var (
	_ drepo.PriceHistoryProvider = (*Provider)(nil)
	_ drepo.FundamentalsProvider = (*Provider)(nil)
)
