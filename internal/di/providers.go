package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"FinScope/internal/domain/models"
	"FinScope/internal/domain/repository"
	domsvc "FinScope/internal/domain/service"
	"FinScope/internal/handler/api"
	"FinScope/internal/handler/ws"
	mid "FinScope/internal/middleware"
	internalrepo "FinScope/internal/repository"
	icache "FinScope/internal/service/cache"
	"FinScope/internal/service/eodhd"
	"FinScope/internal/service/ratelimit"
	"FinScope/internal/services/backtest"
	"FinScope/internal/services/indicators"
	"FinScope/internal/services/prediction"
	"FinScope/internal/services/recommendation"
	"FinScope/internal/services/sentiment"
	"FinScope/internal/usecase"
	"FinScope/pkg/cache"
	pkgch "FinScope/pkg/clickhouse"
	"FinScope/pkg/config"
	xhttp "FinScope/pkg/http"
	pkgkafka "FinScope/pkg/kafka"
	applogger "FinScope/pkg/logger"
	"FinScope/pkg/metrics"
	"FinScope/pkg/queue"
	"FinScope/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lgr, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return lgr, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

func needsClickHouse(cfg *config.Config) bool {
	return cfg.Providers.Prices == "clickhouse" || cfg.Sink.Backend == "clickhouse"
}

// ProvideClickHouseClient creates a ClickHouse client and its schema. It returns nil
// when neither the price store nor the report sink live in ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !needsClickHouse(cfg) {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := cfg.ClickHouse
	client, err := pkgch.New(ctx, pkgch.Config{
		Host:             c.Host,
		Port:             c.Port,
		Database:         c.Database,
		User:             c.User,
		Password:         c.Password,
		UseHTTP:          c.UseHTTP,
		AsyncInsert:      c.AsyncInsert,
		WaitForAsync:     c.WaitForAsync,
		DialTimeout:      c.DialTimeout,
		ReadTimeout:      c.ReadTimeout,
		MaxExecutionTime: c.MaxExecutionTime,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// kafkaRegisterer keeps client collectors off the default registry when metrics are off.
func kafkaRegisterer(cfg *config.Config) prometheus.Registerer {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return prometheus.DefaultRegisterer
}

// ProvideKafkaProducer creates a Kafka producer, nil unless reports go to Kafka.
func ProvideKafkaProducer(cfg *config.Config, lgr *applogger.Logger) (*pkgkafka.Producer, error) {
	if cfg.Sink.Backend != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:       cfg.Kafka.Brokers,
		RequiredAcks:  cfg.Kafka.RequiredAcks,
		Compression:   cfg.Kafka.Compression,
		MaxAttempts:   cfg.Kafka.Producer.MaxAttempts,
		WriteTimeout:  cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:   cfg.Kafka.Producer.ReadTimeout,
		BatchSize:     cfg.Kafka.Producer.BatchSize,
		BatchBytes:    int64(cfg.Kafka.Producer.BatchBytes),
		BatchTimeout:  cfg.Kafka.Producer.Linger,
		Async:         cfg.Kafka.Producer.Async,
		KeyedOrdering: true,
	}, pkgkafka.WithLogger(lgr), pkgkafka.WithRegisterer(kafkaRegisterer(cfg)))
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, lgr *applogger.Logger, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    kc.GroupID,
		Workers:    kc.Workers,
		BufferSize: kc.BufferSize,
		RetryMax:   kc.RetryMax,
		BackoffMin: kc.BackoffMin,
		BackoffMax: kc.BackoffMax,
		DLQTopic:   kc.DLQTopic,
		MinBytes:   kc.MinBytes,
		MaxBytes:   kc.MaxBytes,
	},
		pkgkafka.WithLogger(lgr),
		pkgkafka.WithRegisterer(kafkaRegisterer(cfg)),
		pkgkafka.WithHook(usecase.NewConsumerHook(lgr, m)),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRedisCache connects to Redis, nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.Redis, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedis(context.Background(), cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   "finscope:",
	})
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideReportCache layers an in-process cache over Redis, or stays in-process without it.
func ProvideReportCache(cfg *config.Config, rc *cache.Redis) (cache.Store, error) {
	mem, err := cache.NewMemory(cache.MemoryConfig{MaxBytes: 32 << 20, DefaultTTL: cfg.Analysis.CacheTTL})
	if err != nil {
		return nil, fmt.Errorf("report cache: %w", err)
	}
	if rc == nil {
		return mem, nil
	}
	return cache.NewLayered(mem, rc, time.Minute), nil
}

// fundamentalsStore picks the byte store behind the fundamentals decorator. With Redis
// it shares the connection under its own prefix.
func fundamentalsStore(cfg *config.Config, rc *cache.Redis) (cache.Store, error) {
	if rc != nil {
		return cache.NewRedisWithClient(rc.Client(), "finscope:funds:"), nil
	}
	return cache.NewMemory(cache.MemoryConfig{MaxBytes: 8 << 20, DefaultTTL: cfg.Providers.FundamentalsTTL})
}

// MarketSources groups the read side, the vendor used for ingestion and the local
// store ingestion writes to. Vendor and Store may be nil.
type MarketSources struct {
	Prices repository.PriceHistoryProvider
	Funds  repository.FundamentalsProvider
	Vendor usecase.MarketSource
	Store  repository.PriceWriter
}

// ProvideMarketSources resolves where bars and fundamentals come from.
func ProvideMarketSources(cfg *config.Config, ch *pkgch.Client, rc *cache.Redis, lgr *applogger.Logger) (*MarketSources, error) {
	src := &MarketSources{}
	funds, err := fundamentalsStore(cfg, rc)
	if err != nil {
		return nil, fmt.Errorf("fundamentals cache: %w", err)
	}

	var store *internalrepo.CHPriceStore
	if ch != nil {
		store = internalrepo.NewCHPriceStore(ch, cfg.ClickHouse.Database)
		store.SetLogger(lgr)
		src.Store = store
	}

	if key := cfg.Providers.EODHD.APIKey; key != "" {
		client := eodhd.NewClient(key,
			eodhd.WithBaseURL(cfg.Providers.EODHD.BaseURL),
			eodhd.WithTimeout(cfg.Providers.EODHD.Timeout),
			eodhd.WithRateLimit(cfg.Providers.EODHD.RateLimit, cfg.Providers.EODHD.Burst),
			eodhd.WithLogger(lgr),
		)
		src.Vendor = eodhd.NewProvider(client)
	}

	var rawFunds repository.FundamentalsProvider
	if cfg.Providers.Prices == "eodhd" {
		src.Prices = src.Vendor
		rawFunds = src.Vendor
		// bars are served by the vendor, ingestion into ClickHouse would be unused
		src.Store = nil
	} else {
		src.Prices = store
		rawFunds = store
	}
	src.Funds = icache.NewFundamentalsCache(rawFunds, funds, cfg.Providers.FundamentalsTTL, lgr)
	return src, nil
}

// ProvideReportStorage returns ClickHouse report storage, nil without a ClickHouse client.
func ProvideReportStorage(ch *pkgch.Client, cfg *config.Config) repository.ReportStorage {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseStorage(ch, cfg.ClickHouse.Database)
}

// ProvideReportPublisher returns the Kafka publisher, nil without a producer.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideReportProcessor creates the batched report sink.
func ProvideReportProcessor(
	pub repository.ReportPublisher,
	store repository.ReportStorage,
	m repository.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) *usecase.ReportProcessor {
	return usecase.NewReportProcessor(pub, store, m, lgr, cfg.Sink.Backend, cfg.Sink.BatchSize, cfg.Sink.BatchTimeout)
}

// ProvidePredictionHistory opens the SQLite prediction log.
func ProvidePredictionHistory(cfg *config.Config) (*internalrepo.SQLitePredictionHistory, error) {
	h, err := internalrepo.NewSQLitePredictionHistory(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("prediction history: %w", err)
	}
	return h, nil
}

func validateStrategy(def models.StrategyDefinition) error {
	_, err := backtest.FromDefinition(def)
	return err
}

// ProvideStrategyCatalog seeds the built-in strategies plus the strategies file, and
// persists user strategies in Postgres when a DSN is configured.
func ProvideStrategyCatalog(cfg *config.Config, lgr *applogger.Logger) (repository.StrategyCatalog, error) {
	seed := backtest.Builtins()
	if cfg.Strategies.File != "" {
		defs, err := internalrepo.LoadStrategiesFile(cfg.Strategies.File)
		if err != nil {
			return nil, err
		}
		seed = append(seed, defs...)
	}
	mem, err := internalrepo.NewMemoryStrategyCatalog(validateStrategy, seed...)
	if err != nil {
		return nil, fmt.Errorf("strategy catalog: %w", err)
	}
	lgr.Info("strategy catalog loaded", applogger.Int("strategies", len(seed)))

	if cfg.Strategies.PostgresDSN == "" {
		return mem, nil
	}
	db, err := internalrepo.OpenPostgres(cfg.Strategies.PostgresDSN)
	if err != nil {
		return nil, err
	}
	gc, err := internalrepo.NewGormStrategyCatalog(db, mem, validateStrategy)
	if err != nil {
		return nil, fmt.Errorf("postgres strategy catalog: %w", err)
	}
	return gc, nil
}

// ProvideSentiment builds the configured sentiment provider with the rule based fallback.
func ProvideSentiment(cfg *config.Config, lgr *applogger.Logger) (domsvc.SentimentProvider, error) {
	return sentiment.New(context.Background(), cfg, lgr)
}

func ProvideRecommendationEngine(cfg *config.Config) (*recommendation.Engine, error) {
	w := cfg.Analysis.Weights
	return recommendation.NewEngine(recommendation.Weights{
		Technical:   w.Technical,
		Fundamental: w.Fundamental,
		Sentiment:   w.Sentiment,
		Macro:       w.Macro,
	})
}

func ProvidePredictionEngine(cfg *config.Config) *prediction.Engine {
	return prediction.NewEngine(
		prediction.WithScenarioBand(cfg.Analysis.ScenarioBand),
		prediction.WithTimeFrame(cfg.Analysis.TimeFrame),
	)
}

// ProvideHub creates the live report feed.
func ProvideHub(cfg *config.Config, lgr *applogger.Logger, m repository.Metrics) *ws.Hub {
	w := cfg.Server.WebSocket
	return ws.NewHub(lgr, m, ws.WithPingInterval(w.PingInterval), ws.WithSendBuffer(w.SendBuffer))
}

// IndicatorOptions turns the indicators section into periods for Compute.
func IndicatorOptions(cfg *config.Config) []indicators.Option {
	in := cfg.Indicators
	return []indicators.Option{
		indicators.WithSMA(in.SMAShort, in.SMALong),
		indicators.WithMACD(in.EMAFast, in.EMASlow, in.MACDSignal),
		indicators.WithRSI(in.RSI),
		indicators.WithBollinger(in.Bollinger, in.BollingerK),
		indicators.WithStochastic(in.Stochastic, in.StochasticD),
		indicators.WithWilliams(in.Williams),
		indicators.WithOBVLookback(in.OBVLookback),
		indicators.WithVolatility(in.VolatilityWindow, 0),
	}
}

// ProvideAnalysisUseCase wires the analysis use case to its sinks, history and cache.
func ProvideAnalysisUseCase(
	cfg *config.Config,
	src *MarketSources,
	sent domsvc.SentimentProvider,
	rec *recommendation.Engine,
	pred *prediction.Engine,
	m repository.Metrics,
	lgr *applogger.Logger,
	proc *usecase.ReportProcessor,
	hub *ws.Hub,
	history *internalrepo.SQLitePredictionHistory,
	reportCache cache.Store,
) *usecase.AnalysisUseCase {
	a := cfg.Analysis
	return usecase.NewAnalysisUseCase(src.Prices, src.Funds, sent, rec, pred, m, lgr,
		usecase.WithAnalysisConfig(usecase.AnalysisConfig{
			Timeout:          a.Timeout,
			ProviderTimeout:  a.ProviderTimeout,
			SentimentTimeout: a.SentimentTimeout,
			Interval:         repository.NormalizeInterval(a.Interval),
			Lookback:         a.Lookback,
			MacroScore:       a.MacroScore,
			TimeFrame:        a.TimeFrame,
			Benchmark:        a.Benchmark,
			CacheTTL:         a.CacheTTL,
			LockTTL:          a.LockTTL,
		}),
		usecase.WithSinks(proc, hub),
		usecase.WithPredictionHistory(history),
		usecase.WithReportCache(reportCache),
		usecase.WithIndicators(IndicatorOptions(cfg)...),
	)
}

func ProvideMarketDataUseCase(src *MarketSources, cfg *config.Config) *usecase.MarketDataUseCase {
	return usecase.NewMarketDataUseCase(src.Prices, src.Funds, cfg.Analysis.ProviderTimeout, IndicatorOptions(cfg)...)
}

func ProvideBacktestUseCase(
	cfg *config.Config,
	src *MarketSources,
	catalog repository.StrategyCatalog,
	store repository.ReportStorage,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.BacktestUseCase {
	b := cfg.Backtest
	return usecase.NewBacktestUseCase(src.Prices, catalog, store, m, lgr, usecase.BacktestDefaults{
		InitialCapital:   b.InitialCapital,
		CommissionRate:   b.CommissionRate,
		CommissionFixed:  b.CommissionFixed,
		SlippageRate:     b.SlippageRate,
		PositionFraction: b.PositionFraction,
		Workers:          b.Workers,
		Lookback:         b.Lookback,
		ProviderTimeout:  cfg.Analysis.ProviderTimeout,
		Indicators:       IndicatorOptions(cfg),
	})
}

func ProvideAccuracyUseCase(
	history *internalrepo.SQLitePredictionHistory,
	src *MarketSources,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.AccuracyUseCase {
	return usecase.NewAccuracyUseCase(history, src.Prices, m, lgr)
}

// ProvideIngestUseCase returns nil unless there is both a vendor and a local store.
func ProvideIngestUseCase(src *MarketSources, m repository.Metrics, lgr *applogger.Logger) *usecase.IngestUseCase {
	if src.Vendor == nil || src.Store == nil {
		return nil
	}
	return usecase.NewIngestUseCase(src.Vendor, src.Store, m, lgr)
}

// ProvideAnalysisPipeline buffers and throttles analysis requests from the scheduler and Kafka.
func ProvideAnalysisPipeline(
	analysis *usecase.AnalysisUseCase,
	m repository.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) *mid.AnalysisPipeline {
	p := cfg.Pipeline
	return mid.NewAnalysisPipeline(analysis, m,
		mid.WithWorkers(p.Workers),
		mid.WithThrottle(p.Throttle),
		mid.WithBufferSize(p.BufferSize),
		mid.WithRetry(p.RetryMax, p.BackoffMin, p.BackoffMax),
		mid.WithPipelineLogger(lgr),
	)
}

// ProvideScheduler registers the cron jobs, nil when the scheduler is disabled.
func ProvideScheduler(
	cfg *config.Config,
	pipeline *mid.AnalysisPipeline,
	ingest *usecase.IngestUseCase,
	accuracy *usecase.AccuracyUseCase,
	lgr *applogger.Logger,
) (*usecase.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	s := usecase.NewScheduler(pipeline, ingest, accuracy, cfg.Scheduler.Symbols, lgr)
	if err := s.Register(cfg.Scheduler.Spec, cfg.Scheduler.Ingest); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideJobQueue creates the Redis job queue serving async backtests and log digests,
// nil when the queue is disabled. When log digests are enabled the logger starts
// flushing aggregated errors onto it.
func ProvideJobQueue(
	cfg *config.Config,
	rc *cache.Redis,
	bt *usecase.BacktestUseCase,
	lgr *applogger.Logger,
) (*queue.RedisQueue, error) {
	if !cfg.Queue.Enabled || rc == nil {
		return nil, nil
	}
	q, err := queue.NewRedisQueue(lgr, queue.Config{
		Workers:    cfg.Queue.Workers,
		MaxPending: cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		Prefix:     "finscope:jobs",
	}, rc.Client())
	if err != nil {
		return nil, fmt.Errorf("job queue: %w", err)
	}
	q.RegisterJob(usecase.NewBacktestQueueJob(bt, lgr))

	if cfg.Log.Digest.Enabled {
		q.RegisterJob(usecase.NewLogDigestJob(lgr, 5))
		lgr.AddCollector(&applogger.CollectorConfig{
			Interval:  cfg.Log.Digest.Interval,
			Threshold: cfg.Log.Digest.Threshold,
			Topic:     usecase.LogDigestJobType,
			Publisher: q,
		})
	}
	return q, nil
}

// ProvideAPIHandler creates the HTTP API with its optional surfaces.
func ProvideAPIHandler(
	cfg *config.Config,
	lgr *applogger.Logger,
	analysis *usecase.AnalysisUseCase,
	market *usecase.MarketDataUseCase,
	bt *usecase.BacktestUseCase,
	accuracy *usecase.AccuracyUseCase,
	rec *recommendation.Engine,
	pred *prediction.Engine,
	store repository.ReportStorage,
	jobs *queue.RedisQueue,
) *api.Handler {
	opts := []api.Option{api.WithReportStorage(store)}
	if jobs != nil {
		opts = append(opts, api.WithJobQueue(jobs))
	}
	if rl := cfg.Server.RateLimit; rl.Capacity > 0 {
		opts = append(opts, api.WithRateLimiter(ratelimit.New(float64(rl.Capacity), float64(rl.Refill))))
	}
	return api.NewHandler(lgr, analysis, market, bt, accuracy, rec, pred, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	h *api.Handler,
	hub *ws.Hub,
	pipeline *mid.AnalysisPipeline,
	proc *usecase.ReportProcessor,
	consumer *pkgkafka.Consumer,
	store repository.ReportStorage,
	m repository.Metrics,
	scheduler *usecase.Scheduler,
	jobs *queue.RedisQueue,
	history *internalrepo.SQLitePredictionHistory,
	ch *pkgch.Client,
	reportCache cache.Store,
) *server.App {
	opts := []server.Option{
		server.WithPipeline(pipeline),
		server.WithReportProcessor(proc),
		server.WithCloser("websocket hub", func() error { hub.Close(); return nil }),
		// also closes the Redis connection the layered cache wraps
		server.WithCloser("report cache", reportCache.Close),
		server.WithCloser("prediction history", history.Close),
	}
	if consumer != nil {
		hs := []pkgkafka.MessageHandler{usecase.NewAnalysisRequestHandler(cfg.Kafka.RequestTopic, pipeline, m)}
		// reports published by other instances land in local storage
		if store != nil && cfg.Sink.Backend != "clickhouse" {
			hs = append(hs, usecase.NewReportsIngestHandler(cfg.Kafka.Topic, store, m))
		}
		opts = append(opts, server.WithKafkaConsumer(consumer, hs...))
	}
	if scheduler != nil {
		opts = append(opts, server.WithScheduler(scheduler))
	}
	if jobs != nil {
		opts = append(opts, server.WithJobQueue(jobs))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch.Close))
	}
	return server.New(cfg, lgr, []xhttp.Handler{h, hub}, opts...)
}
