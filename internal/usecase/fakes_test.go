package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func series(n int, start, step float64) []models.PricePoint {
	out := make([]models.PricePoint, n)
	for i := range out {
		c := start + step*float64(i)
		out[i] = models.PricePoint{
			Timestamp: day0.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000 + float64(i),
		}
	}
	return out
}

type fakePrices struct {
	mu    sync.Mutex
	bars  map[string][]models.PricePoint
	err   error
	calls map[string]int
}

func newFakePrices() *fakePrices {
	return &fakePrices{bars: map[string][]models.PricePoint{}, calls: map[string]int{}}
}

func (f *fakePrices) GetPrices(_ context.Context, symbol string, from, to time.Time, _ domrepo.Interval) ([]models.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.PricePoint
	for _, b := range f.bars[symbol] {
		if !b.Timestamp.Before(from) && !b.Timestamp.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakePrices) GetPriceHistory(_ context.Context, symbol string, _ domrepo.Interval, limit int) ([]models.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if f.err != nil {
		return nil, f.err
	}
	b := f.bars[symbol]
	if limit > 0 && len(b) > limit {
		b = b[len(b)-limit:]
	}
	return b, nil
}

func (f *fakePrices) count(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

type fakeFunds struct {
	reports []models.FundamentalReport
	err     error
}

func (f *fakeFunds) GetFundamentals(_ context.Context, symbol string) ([]models.FundamentalReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reports, nil
}

func sampleReports(symbol string) []models.FundamentalReport {
	q := func(v int) *int { return &v }
	var out []models.FundamentalReport
	for i := 0; i < 5; i++ {
		d := time.Date(2023, time.Month(3*(i%4)+3), 30, 0, 0, 0, 0, time.UTC).AddDate(i/4, 0, 0)
		out = append(out, models.FundamentalReport{
			Symbol:            symbol,
			ReportDate:        d,
			Quarter:           q(i%4 + 1),
			Year:              d.Year(),
			Revenue:           models.Float(1000 + 50*float64(i)),
			NetIncome:         models.Float(150 + 10*float64(i)),
			EPS:               models.Float(1.5 + 0.1*float64(i)),
			TotalAssets:       models.Float(5000),
			TotalLiabilities:  models.Float(2000),
			TotalEquity:       models.Float(3000),
			SharesOutstanding: models.Float(100),
		})
	}
	return out
}

type fakeSentiment struct {
	res models.SentimentResult
	err error
}

func (f *fakeSentiment) Name() string { return "fake" }

func (f *fakeSentiment) Analyze(_ context.Context, _ models.SentimentRequest) (models.SentimentResult, error) {
	return f.res, f.err
}

type fakeSink struct {
	mu      sync.Mutex
	reports []*models.AnalysisReport
	err     error
}

func (f *fakeSink) Record(_ context.Context, r *models.AnalysisReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
	return f.err
}

type fakeHistory struct {
	mu   sync.Mutex
	recs map[string]*models.PredictionRecord
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{recs: map[string]*models.PredictionRecord{}}
}

func (f *fakeHistory) Save(_ context.Context, rec *models.PredictionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.recs[rec.ID] = &cp
	return nil
}

func (f *fakeHistory) Pending(_ context.Context, symbol string, asOf time.Time) ([]*models.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PredictionRecord
	for _, r := range f.recs {
		if strings.EqualFold(r.Symbol, symbol) && r.EvaluatedAt == nil && !r.DueAt().After(asOf) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeHistory) MarkEvaluated(_ context.Context, id string, actual float64, correct bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok {
		return models.ErrNotFound
	}
	r.ActualPrice, r.Correct, r.EvaluatedAt = &actual, &correct, &at
	return nil
}

func (f *fakeHistory) Evaluated(_ context.Context, symbol string) ([]*models.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PredictionRecord
	for _, r := range f.recs {
		if strings.EqualFold(r.Symbol, symbol) && r.EvaluatedAt != nil {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeHistory) Close() error { return nil }

type fakeStorage struct {
	mu        sync.Mutex
	stored    []*models.AnalysisReport
	batches   int
	backtests []*models.BacktestResult
	err       error
	closed    bool
}

func (f *fakeStorage) Init(context.Context) error { return nil }

func (f *fakeStorage) Store(_ context.Context, r *models.AnalysisReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, r)
	return nil
}

func (f *fakeStorage) StoreBatch(_ context.Context, rs []*models.AnalysisReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches++
	f.stored = append(f.stored, rs...)
	return nil
}

func (f *fakeStorage) StoreBacktest(_ context.Context, r *models.BacktestResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backtests = append(f.backtests, r)
	return nil
}

func (f *fakeStorage) Query(context.Context, string, time.Time, time.Time, int) ([]*models.AnalysisReport, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) Health(context.Context) error { return nil }

func (f *fakeStorage) Close() error {
	f.closed = true
	return nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

type fakePublisher struct {
	published []*models.AnalysisReport
}

func (f *fakePublisher) Publish(_ context.Context, r *models.AnalysisReport) error {
	f.published = append(f.published, r)
	return nil
}

func (f *fakePublisher) PublishBatch(_ context.Context, rs []*models.AnalysisReport) error {
	f.published = append(f.published, rs...)
	return nil
}

func (f *fakePublisher) Close() error { return nil }
