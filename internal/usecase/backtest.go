package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/services/backtest"
	"FinScope/internal/services/indicators"
	applogger "FinScope/pkg/logger"
	"FinScope/pkg/queue"
)

// BacktestDefaults are the execution settings used when a request leaves them out.
type BacktestDefaults struct {
	InitialCapital   float64
	CommissionRate   float64
	CommissionFixed  float64
	SlippageRate     float64
	PositionFraction float64
	Workers          int
	Lookback         int
	ProviderTimeout  time.Duration
	Indicators       []indicators.Option
}

// BacktestUseCase resolves strategies from the catalog and replays them over stored history.
type BacktestUseCase struct {
	prices   domrepo.PriceHistoryProvider
	catalog  domrepo.StrategyCatalog
	storage  domrepo.ReportStorage
	metrics  domrepo.Metrics
	logger   *applogger.Logger
	defaults BacktestDefaults
}

// NewBacktestUseCase builds the use case. storage may be nil, results are then not persisted.
func NewBacktestUseCase(
	prices domrepo.PriceHistoryProvider,
	catalog domrepo.StrategyCatalog,
	storage domrepo.ReportStorage,
	metrics domrepo.Metrics,
	lgr *applogger.Logger,
	d BacktestDefaults,
) *BacktestUseCase {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	if d.Workers <= 0 {
		d.Workers = 4
	}
	if d.Lookback <= 0 {
		d.Lookback = 750
	}
	if d.ProviderTimeout <= 0 {
		d.ProviderTimeout = 8 * time.Second
	}
	if d.InitialCapital <= 0 {
		d.InitialCapital = 10000
	}
	if d.PositionFraction <= 0 {
		d.PositionFraction = 1
	}
	return &BacktestUseCase{prices: prices, catalog: catalog, storage: storage, metrics: metrics, logger: lgr, defaults: d}
}

// BacktestJob is one strategy over one series.
type BacktestJob struct {
	Symbol   string
	Points   []models.PricePoint
	Strategy models.StrategyDefinition
}

// BacktestOutcome pairs a job with its result or error. Batch results keep job order.
type BacktestOutcome struct {
	Symbol   string                 `json:"symbol"`
	Strategy string                 `json:"strategy"`
	Result   *models.BacktestResult `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
	err      error
}

func (o BacktestOutcome) Err() error { return o.err }

func (uc *BacktestUseCase) engine(req models.BacktestRequest, iv domrepo.Interval) (*backtest.Engine, error) {
	d := uc.defaults
	capital := d.InitialCapital
	if req.InitialCapital > 0 {
		capital = req.InitialCapital
	}
	commission := d.CommissionRate
	if req.CommissionRate != nil {
		commission = *req.CommissionRate
	}
	slippage := d.SlippageRate
	if req.SlippageRate != nil {
		slippage = *req.SlippageRate
	}
	return backtest.NewEngine(
		backtest.WithInitialCapital(capital),
		backtest.WithCommission(commission, d.CommissionFixed),
		backtest.WithSlippage(slippage),
		backtest.WithPositionFraction(d.PositionFraction),
		backtest.WithBarsPerYear(iv.BarsPerYear()),
		backtest.WithIndicatorOptions(indicatorOptions(d.Indicators, iv)...),
	)
}

// Run backtests every requested strategy (all catalog strategies when none are named)
// over the symbol's history. Per-strategy failures are reported in the outcomes.
func (uc *BacktestUseCase) Run(ctx context.Context, req models.BacktestRequest) ([]BacktestOutcome, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, models.Invalid("symbol", "required")
	}
	iv := domrepo.IV1d
	if req.Interval != "" {
		iv = domrepo.Interval(req.Interval)
		if !domrepo.IsValidInterval(iv) {
			return nil, models.Invalid("interval", "unsupported interval %q", req.Interval)
		}
	}
	n := req.N
	if n <= 0 {
		n = uc.defaults.Lookback
	}

	defs, err := uc.resolve(ctx, req.Strategies)
	if err != nil {
		return nil, err
	}
	eng, err := uc.engine(req, iv)
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, uc.defaults.ProviderTimeout)
	points, err := uc.prices.GetPriceHistory(pctx, symbol, iv, n)
	cancel()
	if err != nil {
		uc.metrics.RecordError("backtest_prices")
		return nil, models.External("prices", err)
	}
	if len(points) == 0 {
		return nil, models.Invalid("prices", "no price history for %s", symbol)
	}

	jobs := make([]BacktestJob, len(defs))
	for i, d := range defs {
		jobs[i] = BacktestJob{Symbol: symbol, Points: points, Strategy: d}
	}
	return uc.RunBatch(ctx, eng, jobs), nil
}

func (uc *BacktestUseCase) resolve(ctx context.Context, names []string) ([]models.StrategyDefinition, error) {
	if len(names) == 0 {
		defs, err := uc.catalog.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list strategies: %w", err)
		}
		return defs, nil
	}
	defs := make([]models.StrategyDefinition, 0, len(names))
	for _, name := range names {
		d, err := uc.catalog.Get(ctx, name)
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, models.Invalid("strategies", "unknown strategy %q", name)
		case err != nil:
			return nil, fmt.Errorf("load strategy %q: %w", name, err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// RunBatch runs the jobs on a bounded worker pool. Each run is sequential; runs are
// independent of each other.
func (uc *BacktestUseCase) RunBatch(ctx context.Context, eng *backtest.Engine, jobs []BacktestJob) []BacktestOutcome {
	out := make([]BacktestOutcome, len(jobs))
	idx := make(chan int)
	var wg sync.WaitGroup

	workers := uc.defaults.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				out[i] = uc.runOne(ctx, eng, jobs[i])
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				out[j] = BacktestOutcome{Symbol: jobs[j].Symbol, Strategy: jobs[j].Strategy.Name, Error: ctx.Err().Error(), err: ctx.Err()}
			}
			break feed
		case idx <- i:
		}
	}
	close(idx)
	wg.Wait()
	return out
}

func (uc *BacktestUseCase) runOne(ctx context.Context, eng *backtest.Engine, job BacktestJob) BacktestOutcome {
	o := BacktestOutcome{Symbol: job.Symbol, Strategy: job.Strategy.Name}
	fail := func(err error) BacktestOutcome {
		o.err, o.Error = err, err.Error()
		uc.metrics.RecordError("backtest")
		uc.logger.Warn("backtest failed",
			applogger.String("symbol", job.Symbol),
			applogger.String("strategy", job.Strategy.Name),
			applogger.Error(err))
		return o
	}

	st, err := backtest.FromDefinition(job.Strategy)
	if err != nil {
		return fail(err)
	}
	start := time.Now()
	res, err := eng.Run(job.Symbol, job.Points, st)
	if err != nil {
		return fail(err)
	}
	res.ID = uuid.NewString()
	uc.metrics.RecordLatency("backtest", time.Since(start).Seconds())
	uc.metrics.RecordBacktest(res.Strategy, res.Stats.TotalReturn)

	if uc.storage != nil {
		if err := uc.storage.StoreBacktest(ctx, res); err != nil {
			uc.metrics.RecordError("backtest_store")
			uc.logger.Warn("backtest store failed", applogger.String("id", res.ID), applogger.Error(err))
		}
	}
	o.Result = res
	return o
}

// RunPoints backtests one named strategy over caller supplied bars.
func (uc *BacktestUseCase) RunPoints(ctx context.Context, symbol string, iv domrepo.Interval, points []models.PricePoint, strategy string) (*models.BacktestResult, error) {
	defs, err := uc.resolve(ctx, []string{strategy})
	if err != nil {
		return nil, err
	}
	eng, err := uc.engine(models.BacktestRequest{}, iv)
	if err != nil {
		return nil, err
	}
	o := uc.runOne(ctx, eng, BacktestJob{Symbol: strings.ToUpper(symbol), Points: points, Strategy: defs[0]})
	return o.Result, o.err
}

func (uc *BacktestUseCase) Strategies(ctx context.Context) ([]models.StrategyDefinition, error) {
	return uc.catalog.List(ctx)
}

func (uc *BacktestUseCase) Strategy(ctx context.Context, name string) (models.StrategyDefinition, error) {
	return uc.catalog.Get(ctx, name)
}

// SaveStrategy compiles def before storing it so a broken rule never reaches the catalog.
func (uc *BacktestUseCase) SaveStrategy(ctx context.Context, def models.StrategyDefinition) error {
	if _, err := backtest.FromDefinition(def); err != nil {
		return err
	}
	return uc.catalog.Save(ctx, def)
}

const BacktestJobType = "backtest.run"

// BacktestQueueJob runs queued backtest requests.
type BacktestQueueJob struct {
	uc     *BacktestUseCase
	logger *applogger.Logger
}

func NewBacktestQueueJob(uc *BacktestUseCase, lgr *applogger.Logger) *BacktestQueueJob {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	return &BacktestQueueJob{uc: uc, logger: lgr}
}

func (j *BacktestQueueJob) Name() string { return "backtest-runner" }
func (j *BacktestQueueJob) Type() string { return BacktestJobType }

func (j *BacktestQueueJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.Decode[models.BacktestRequest](payload)
	if err != nil {
		j.logger.Warn("queued backtest dropped", applogger.Error(err))
		return nil
	}
	outcomes, err := j.uc.Run(ctx, req)
	if err != nil {
		if models.IsInvalidInput(err) {
			j.logger.Warn("queued backtest rejected", applogger.String("symbol", req.Symbol), applogger.Error(err))
			return nil
		}
		return err
	}
	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
		}
	}
	j.logger.Info("queued backtest done",
		applogger.String("symbol", req.Symbol),
		applogger.Int("strategies", len(outcomes)),
		applogger.Int("failed", failed))
	return nil
}

var _ queue.Job = (*BacktestQueueJob)(nil)
