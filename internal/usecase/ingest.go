package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domrepo "FinScope/internal/domain/repository"
	applogger "FinScope/pkg/logger"
)

// MarketSource is an upstream vendor of bars and fundamentals.
type MarketSource interface {
	domrepo.PriceHistoryProvider
	domrepo.FundamentalsProvider
}

// IngestUseCase copies bars and fundamentals from a vendor into the local store.
type IngestUseCase struct {
	source  MarketSource
	writer  domrepo.PriceWriter
	metrics domrepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time
}

func NewIngestUseCase(source MarketSource, writer domrepo.PriceWriter, metrics domrepo.Metrics, lgr *applogger.Logger) *IngestUseCase {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	return &IngestUseCase{source: source, writer: writer, metrics: metrics, logger: lgr, now: time.Now}
}

// IngestResult counts what one symbol contributed.
type IngestResult struct {
	Symbol  string `json:"symbol"`
	Bars    int    `json:"bars"`
	Reports int    `json:"reports"`
}

// IngestSymbol pulls bars in [from, to] and the latest fundamentals for symbol.
// A fundamentals failure is logged and does not discard the bars already stored.
func (uc *IngestUseCase) IngestSymbol(ctx context.Context, symbol string, iv domrepo.Interval, from, to time.Time) (IngestResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	res := IngestResult{Symbol: symbol}
	start := time.Now()

	bars, err := uc.source.GetPrices(ctx, symbol, from, to, iv)
	if err != nil {
		uc.metrics.RecordError("ingest_prices")
		return res, fmt.Errorf("fetch %s bars: %w", symbol, err)
	}
	if err := uc.writer.StoreBars(ctx, symbol, iv, bars); err != nil {
		uc.metrics.RecordError("ingest_store")
		return res, fmt.Errorf("store %s bars: %w", symbol, err)
	}
	res.Bars = len(bars)

	reports, err := uc.source.GetFundamentals(ctx, symbol)
	if err != nil {
		uc.metrics.RecordError("ingest_fundamentals")
		uc.logger.Warn("fundamentals ingest failed", applogger.String("symbol", symbol), applogger.Error(err))
	} else if err := uc.writer.StoreFundamentals(ctx, reports); err != nil {
		uc.metrics.RecordError("ingest_store")
		uc.logger.Warn("fundamentals store failed", applogger.String("symbol", symbol), applogger.Error(err))
	} else {
		res.Reports = len(reports)
	}

	uc.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	uc.logger.Info("symbol ingested",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(iv)),
		applogger.Int("bars", res.Bars),
		applogger.Int("reports", res.Reports))
	return res, nil
}

// IngestRecent refreshes the last days of daily bars for every symbol. Symbols fail
// independently; the joined error lists each failure.
func (uc *IngestUseCase) IngestRecent(ctx context.Context, symbols []string, days int) ([]IngestResult, error) {
	if days <= 0 {
		days = 10
	}
	to := uc.now().UTC()
	from := to.AddDate(0, 0, -days)

	var (
		out  []IngestResult
		errs []error
	)
	for _, s := range symbols {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		r, err := uc.IngestSymbol(ctx, s, domrepo.IV1d, from, to)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, r)
	}
	return out, errors.Join(errs...)
}
