package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	mid "FinScope/internal/middleware"
	"FinScope/internal/usecase"
	"FinScope/pkg/config"
	xhttp "FinScope/pkg/http"
	pkgkafka "FinScope/pkg/kafka"
	applogger "FinScope/pkg/logger"
	"FinScope/pkg/queue"
)

// Closer releases one infrastructure resource on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	logger   *applogger.Logger
	handlers []xhttp.Handler

	pipeline      *mid.AnalysisPipeline
	processor     *usecase.ReportProcessor
	consumer      *pkgkafka.Consumer
	kafkaHandlers []pkgkafka.MessageHandler
	scheduler     *usecase.Scheduler
	jobs          *queue.RedisQueue
	closers       []Closer

	httpServer *xhttp.Server
}

type Option func(*App)

func WithPipeline(p *mid.AnalysisPipeline) Option { return func(a *App) { a.pipeline = p } }

func WithReportProcessor(p *usecase.ReportProcessor) Option {
	return func(a *App) { a.processor = p }
}

// WithKafkaConsumer attaches a consumer and the handlers it serves. A nil consumer is ignored.
func WithKafkaConsumer(c *pkgkafka.Consumer, hs ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c == nil {
			return
		}
		a.consumer = c
		a.kafkaHandlers = append(a.kafkaHandlers, hs...)
	}
}

func WithScheduler(s *usecase.Scheduler) Option { return func(a *App) { a.scheduler = s } }

func WithJobQueue(q *queue.RedisQueue) Option { return func(a *App) { a.jobs = q } }

// WithCloser registers a resource closed after every worker has stopped, in registration order.
func WithCloser(name string, fn func() error) Option {
	return func(a *App) {
		if fn != nil {
			a.closers = append(a.closers, Closer{Name: name, Close: fn})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, lgr *applogger.Logger, handlers []xhttp.Handler, opts ...Option) *App {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	a := &App{cfg: cfg, logger: lgr, handlers: handlers}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}
	<-ctx.Done()

	a.logger.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches every configured worker and the HTTP server without blocking.
func (a *App) Start(ctx context.Context) error {
	a.logger.Info("starting",
		applogger.String("env", a.cfg.Environment),
		applogger.String("prices", a.cfg.Providers.Prices),
		applogger.String("sink", a.cfg.Sink.Backend))

	if a.processor != nil {
		a.processor.Start(ctx)
		a.logger.Info("report sink started",
			applogger.String("backend", a.processor.Backend()),
			applogger.Int("batch_size", a.cfg.Sink.BatchSize))
	}

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
		a.logger.Info("analysis pipeline started", applogger.Int("buffer", a.cfg.Pipeline.BufferSize))
	}

	if a.jobs != nil {
		if err := a.jobs.Start(ctx); err != nil {
			a.logger.Error("job queue start failed", applogger.Error(err))
			return err
		}
	}

	if a.consumer != nil && len(a.kafkaHandlers) > 0 {
		topics := make([]string, 0, len(a.kafkaHandlers))
		for _, h := range a.kafkaHandlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.logger.Info("kafka consumer started", applogger.Strings("topics", topics))
	}

	if a.scheduler != nil {
		a.scheduler.Start(ctx)
		a.logger.Info("scheduler started",
			applogger.String("spec", a.cfg.Scheduler.Spec),
			applogger.Strings("symbols", a.cfg.Scheduler.Symbols))
	}

	a.httpServer = xhttp.NewServer(a.handlers,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.metricsEndpoint()),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithLogger(a.logger),
	)
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	return nil
}

// metricsEndpoint keeps request series off the default registry when metrics are disabled.
func (a *App) metricsEndpoint() (string, prometheus.Registerer, prometheus.Gatherer) {
	if !a.cfg.Metrics.Enabled {
		return "", nil, nil
	}
	return a.cfg.Metrics.Path, prometheus.DefaultRegisterer, prometheus.DefaultGatherer
}

// Shutdown stops intake first, then drains workers, then closes infrastructure clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
		cancel()
	}

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.consumer != nil && len(a.kafkaHandlers) > 0 {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.jobs != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.jobs.Stop(stopCtx); err != nil {
			a.logger.Warn("job queue stop error", applogger.Error(err))
		}
		cancel()
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}

	// flushes buffered reports and closes the publisher and storage
	if a.processor != nil {
		a.processor.Close()
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	a.logger.RemoveCollector()
	return nil
}
