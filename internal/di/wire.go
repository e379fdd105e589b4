//go:build wireinject
// +build wireinject

package di

import (
	"FinScope/pkg/config"
	"FinScope/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideReportCache,

		// Repositories
		ProvideMarketSources,
		ProvideReportStorage,
		ProvideReportPublisher,
		ProvidePredictionHistory,
		ProvideStrategyCatalog,

		// Engines
		ProvideSentiment,
		ProvideRecommendationEngine,
		ProvidePredictionEngine,

		// Use cases
		ProvideReportProcessor,
		ProvideHub,
		ProvideAnalysisUseCase,
		ProvideMarketDataUseCase,
		ProvideBacktestUseCase,
		ProvideAccuracyUseCase,
		ProvideIngestUseCase,
		ProvideAnalysisPipeline,
		ProvideScheduler,
		ProvideJobQueue,

		// Application server
		ProvideAPIHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
