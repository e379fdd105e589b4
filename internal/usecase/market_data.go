package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/services/fundamentals"
	"FinScope/internal/services/indicators"
)

// MarketDataUseCase serves the single-engine endpoints: raw bars, indicators and
// fundamentals for one symbol.
type MarketDataUseCase struct {
	prices  domrepo.PriceHistoryProvider
	funds   domrepo.FundamentalsProvider
	timeout time.Duration
	periods []indicators.Option
}

// NewMarketDataUseCase builds the use case. periods override the default indicator periods.
func NewMarketDataUseCase(prices domrepo.PriceHistoryProvider, funds domrepo.FundamentalsProvider, timeout time.Duration, periods ...indicators.Option) *MarketDataUseCase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MarketDataUseCase{prices: prices, funds: funds, timeout: timeout, periods: periods}
}

// indicatorOptions appends the interval's annualisation factor to the configured periods.
func indicatorOptions(periods []indicators.Option, iv domrepo.Interval) []indicators.Option {
	opts := make([]indicators.Option, 0, len(periods)+1)
	opts = append(opts, periods...)
	return append(opts, indicators.WithVolatility(0, iv.BarsPerYear()))
}

type GetPricesParams struct {
	Symbol   string
	From     time.Time
	To       time.Time
	Interval domrepo.Interval
	Limit    int
}

type GetPricesResult struct {
	Symbol   string              `json:"symbol"`
	Interval string              `json:"interval"`
	From     time.Time           `json:"from"`
	To       time.Time           `json:"to"`
	Count    int                 `json:"count"`
	Bars     []models.PricePoint `json:"bars"`
}

func (uc *MarketDataUseCase) GetPrices(ctx context.Context, p GetPricesParams) (*GetPricesResult, error) {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" {
		return nil, models.Invalid("symbol", "required")
	}
	if p.From.After(p.To) {
		return nil, models.Invalid("from", "must be <= to")
	}
	if !domrepo.IsValidInterval(p.Interval) {
		p.Interval = domrepo.DefaultInterval()
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	bars, err := uc.prices.GetPrices(ctx, p.Symbol, p.From, p.To, p.Interval)
	if err != nil {
		return nil, models.External("prices", err)
	}
	if len(bars) > p.Limit {
		bars = bars[len(bars)-p.Limit:]
	}

	return &GetPricesResult{
		Symbol:   p.Symbol,
		Interval: string(p.Interval),
		From:     p.From,
		To:       p.To,
		Count:    len(bars),
		Bars:     bars,
	}, nil
}

// IndicatorsResult carries every series plus the scored latest bar.
type IndicatorsResult struct {
	Symbol    string                   `json:"symbol"`
	Interval  string                   `json:"interval"`
	Bars      int                      `json:"bars"`
	Times     []time.Time              `json:"times"`
	Series    []indicators.Series      `json:"series"`
	Technical models.TechnicalAnalysis `json:"technical"`
}

func (uc *MarketDataUseCase) Indicators(ctx context.Context, req models.IndicatorsRequest) (*IndicatorsResult, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, models.Invalid("symbol", "required")
	}
	iv := domrepo.NormalizeInterval(req.Interval)

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	bars, err := uc.prices.GetPriceHistory(ctx, symbol, iv, req.N)
	if err != nil {
		return nil, models.External("prices", err)
	}
	if len(bars) == 0 {
		return nil, models.Invalid("prices", "no price history for %s", symbol)
	}

	set := indicators.Compute(bars, indicatorOptions(uc.periods, iv)...)
	return &IndicatorsResult{
		Symbol:    symbol,
		Interval:  string(iv),
		Bars:      set.Bars,
		Times:     models.Columns(bars).Times,
		Series:    set.All(),
		Technical: indicators.Analyze(set),
	}, nil
}

// Fundamentals scores the symbol's reports against its latest close. Without a price the
// price-based ratios are simply unavailable.
func (uc *MarketDataUseCase) Fundamentals(ctx context.Context, symbol string) (*models.FundamentalAnalysis, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, models.Invalid("symbol", "required")
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	reports, err := uc.funds.GetFundamentals(ctx, symbol)
	if err != nil {
		return nil, models.External("fundamentals", err)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("fundamentals for %s: %w", symbol, models.ErrNotFound)
	}

	price := 0.0
	if bars, err := uc.prices.GetPriceHistory(ctx, symbol, domrepo.IV1d, 1); err == nil {
		price, _ = models.LastClose(bars)
	}
	fa := fundamentals.Analyze(reports, price)
	return &fa, nil
}
