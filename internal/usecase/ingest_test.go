package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/pkg/metrics"
)

type fakeSource struct {
	*fakePrices
	*fakeFunds
}

type fakeWriter struct {
	bars    map[string]int
	reports int
	err     error
}

func (w *fakeWriter) StoreBars(_ context.Context, symbol string, _ domrepo.Interval, bars []models.PricePoint) error {
	if w.err != nil {
		return w.err
	}
	w.bars[symbol] += len(bars)
	return nil
}

func (w *fakeWriter) StoreFundamentals(_ context.Context, reports []models.FundamentalReport) error {
	w.reports += len(reports)
	return nil
}

func TestIngestSymbol(t *testing.T) {
	prices := newFakePrices()
	prices.bars["AAPL"] = series(30, 100, 1)
	w := &fakeWriter{bars: map[string]int{}}
	uc := NewIngestUseCase(fakeSource{prices, &fakeFunds{reports: sampleReports("AAPL")}}, w, metrics.Nop{}, nil)

	res, err := uc.IngestSymbol(context.Background(), "aapl", domrepo.IV1d, day0, day0.AddDate(0, 0, 9))
	require.NoError(t, err)
	assert.Equal(t, IngestResult{Symbol: "AAPL", Bars: 10, Reports: 5}, res)
	assert.Equal(t, 10, w.bars["AAPL"])
}

func TestIngestSymbolKeepsBarsWhenFundamentalsFail(t *testing.T) {
	prices := newFakePrices()
	prices.bars["AAPL"] = series(5, 100, 1)
	w := &fakeWriter{bars: map[string]int{}}
	uc := NewIngestUseCase(fakeSource{prices, &fakeFunds{err: errors.New("quota")}}, w, metrics.Nop{}, nil)

	res, err := uc.IngestSymbol(context.Background(), "AAPL", domrepo.IV1d, day0, day0.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Bars)
	assert.Zero(t, res.Reports)
}

func TestIngestRecentJoinsFailures(t *testing.T) {
	prices := newFakePrices()
	prices.bars["AAPL"] = series(30, 100, 1)
	w := &fakeWriter{bars: map[string]int{}}
	uc := NewIngestUseCase(fakeSource{prices, &fakeFunds{}}, w, metrics.Nop{}, nil)
	uc.now = func() time.Time { return day0.AddDate(0, 0, 29) }

	out, err := uc.IngestRecent(context.Background(), []string{"AAPL", "MSFT"}, 5)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 6, out[0].Bars)
	assert.Equal(t, 0, out[1].Bars)

	w.err = errors.New("disk full")
	out, err = uc.IngestRecent(context.Background(), []string{"AAPL", "MSFT"}, 5)
	assert.Empty(t, out)
	assert.ErrorContains(t, err, "store AAPL bars")
	assert.ErrorContains(t, err, "store MSFT bars")
}
