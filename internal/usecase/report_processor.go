package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinScope/internal/domain/models"
	drepo "FinScope/internal/domain/repository"
	applogger "FinScope/pkg/logger"
)

// ReportProcessor routes finished reports to the configured backend. With a batch size
// above one, reports are buffered and flushed on size or on the batch timeout.
type ReportProcessor struct {
	pub     drepo.ReportPublisher
	store   drepo.ReportStorage
	metrics drepo.Metrics
	logger  *applogger.Logger
	backend string
	batchSz int
	batchTO time.Duration

	mu       sync.Mutex
	buf      []*models.AnalysisReport
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewReportProcessor creates a new ReportProcessor instance.
func NewReportProcessor(
	pub drepo.ReportPublisher,
	store drepo.ReportStorage,
	metrics drepo.Metrics,
	lgr *applogger.Logger,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *ReportProcessor {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	if batchSz < 1 {
		batchSz = 1
	}
	if batchTO <= 0 {
		batchTO = 2 * time.Second
	}
	return &ReportProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		logger:  lgr,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

func (p *ReportProcessor) Backend() string { return p.backend }

// Record implements AnalysisSink.
func (p *ReportProcessor) Record(ctx context.Context, r *models.AnalysisReport) error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}
	if p.backend == "none" {
		return nil
	}
	if p.batchSz == 1 {
		return p.Process(ctx, r)
	}

	p.mu.Lock()
	p.buf = append(p.buf, r)
	full := len(p.buf) >= p.batchSz
	p.mu.Unlock()
	if full {
		return p.Flush(ctx)
	}
	return nil
}

// Process sends a single report to the configured backend.
func (p *ReportProcessor) Process(ctx context.Context, r *models.AnalysisReport) error {
	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, r)
	case "clickhouse":
		err = p.store.Store(ctx, r)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process report: %w", err)
	}

	p.metrics.RecordSinkWrite(p.backend, r.Symbol)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch sends multiple reports in one call.
func (p *ReportProcessor) ProcessBatch(ctx context.Context, reports []*models.AnalysisReport) error {
	if len(reports) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, reports)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, reports)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, r := range reports {
		p.metrics.RecordSinkWrite(p.backend, r.Symbol)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Flush writes out whatever is buffered.
func (p *ReportProcessor) Flush(ctx context.Context) error {
	p.mu.Lock()
	batch := p.buf
	p.buf = nil
	p.mu.Unlock()
	return p.ProcessBatch(ctx, batch)
}

// Start launches the timed flusher. Only needed with a batch size above one.
func (p *ReportProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	if p.stopCh != nil || p.batchSz == 1 {
		p.mu.Unlock()
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	p.stopCh, p.done = stop, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(p.batchTO)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-t.C:
				if err := p.Flush(ctx); err != nil {
					p.logger.Warn("report batch flush failed", applogger.String("backend", p.backend), applogger.Error(err))
				}
			}
		}
	}()
}

// Close stops the flusher, flushes the buffer and closes underlying resources.
// A processor is not restartable once closed.
func (p *ReportProcessor) Close() {
	p.mu.Lock()
	stop, done := p.stopCh, p.done
	if stop == nil {
		// blocks a later Start
		p.stopCh = make(chan struct{})
	}
	p.mu.Unlock()
	if done != nil {
		p.stopOnce.Do(func() { close(stop) })
		<-done
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Flush(ctx); err != nil {
		p.logger.Warn("final report flush failed", applogger.Error(err))
	}
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}

var _ drepo.AnalysisSink = (*ReportProcessor)(nil)
