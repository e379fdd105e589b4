package repository

import (
	"context"
	"time"

	"FinScope/internal/domain/models"
)

// AnalysisSink receives finished analysis reports.
type AnalysisSink interface {
	Record(ctx context.Context, r *models.AnalysisReport) error
}

// ReportPublisher pushes reports to a broker.
type ReportPublisher interface {
	Publish(ctx context.Context, r *models.AnalysisReport) error
	PublishBatch(ctx context.Context, reports []*models.AnalysisReport) error
	Close() error
}

// ReportStorage persists reports and backtest results for later querying.
type ReportStorage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, r *models.AnalysisReport) error
	StoreBatch(ctx context.Context, reports []*models.AnalysisReport) error
	StoreBacktest(ctx context.Context, r *models.BacktestResult) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.AnalysisReport, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// PredictionHistory keeps predictions until their horizon elapses and they can be scored.
type PredictionHistory interface {
	Save(ctx context.Context, rec *models.PredictionRecord) error
	Pending(ctx context.Context, symbol string, asOf time.Time) ([]*models.PredictionRecord, error)
	MarkEvaluated(ctx context.Context, id string, actual float64, correct bool, at time.Time) error
	Evaluated(ctx context.Context, symbol string) ([]*models.PredictionRecord, error)
	Close() error
}

// StrategyCatalog resolves strategy names to definitions.
type StrategyCatalog interface {
	Get(ctx context.Context, name string) (models.StrategyDefinition, error)
	List(ctx context.Context) ([]models.StrategyDefinition, error)
	Save(ctx context.Context, def models.StrategyDefinition) error
}

type Metrics interface {
	RecordAnalysis(symbol string, rec models.Recommendation)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordBacktest(strategy string, totalReturn float64)
	RecordSinkWrite(backend, symbol string)
}
