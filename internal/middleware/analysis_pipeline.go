package middleware

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	applogger "FinScope/pkg/logger"
)

// ErrBufferFull is returned by Submit when the pipeline cannot take more requests.
var ErrBufferFull = errors.New("analysis pipeline buffer full")

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, req models.AnalyzeRequest) error
}

// AnalysisPipeline sits between request sources (scheduler, kafka) and the analysis use case.
// It validates, throttles per symbol, buffers and retries failed runs with backoff.
type AnalysisPipeline struct {
	proc       Proc
	metrics    domrepo.Metrics
	logger     *applogger.Logger
	throttle   time.Duration
	bufSize    int
	workers    int
	retryMax   int
	backoffMin time.Duration
	backoffMax time.Duration

	bufCh    chan models.AnalyzeRequest
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-symbol last accepted time
	now      func() time.Time
}

type PipelineOption func(*AnalysisPipeline)

// WithThrottle sets the minimum spacing between accepted requests for one symbol.
func WithThrottle(d time.Duration) PipelineOption {
	return func(p *AnalysisPipeline) {
		if d >= 0 {
			p.throttle = d
		}
	}
}

// WithBufferSize sets how many requests may wait for a worker.
func WithBufferSize(n int) PipelineOption {
	return func(p *AnalysisPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func WithWorkers(n int) PipelineOption {
	return func(p *AnalysisPipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRetry sets the retry budget and the exponential backoff bounds.
func WithRetry(max int, backoffMin, backoffMax time.Duration) PipelineOption {
	return func(p *AnalysisPipeline) {
		if max >= 0 {
			p.retryMax = max
		}
		if backoffMin > 0 {
			p.backoffMin = backoffMin
		}
		if backoffMax >= p.backoffMin {
			p.backoffMax = backoffMax
		}
	}
}

func WithPipelineLogger(lgr *applogger.Logger) PipelineOption {
	return func(p *AnalysisPipeline) {
		if lgr != nil {
			p.logger = lgr
		}
	}
}

// NewAnalysisPipeline creates a new pipeline.
func NewAnalysisPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *AnalysisPipeline {
	p := &AnalysisPipeline{
		proc:       proc,
		metrics:    metrics,
		logger:     applogger.Nop(),
		throttle:   time.Minute,
		bufSize:    128,
		workers:    2,
		retryMax:   3,
		backoffMin: time.Second,
		backoffMax: 30 * time.Second,
		lastSeen:   make(map[string]time.Time),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.AnalyzeRequest, p.bufSize)
	return p
}

// Start launches the workers draining the buffer. A stopped pipeline may be started again;
// requests buffered meanwhile are picked up by the new workers.
func (p *AnalysisPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	stop := make(chan struct{})
	p.stopCh = stop
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-stop:
					return
				case <-ctx.Done():
					return
				case req := <-p.bufCh:
					p.run(ctx, stop, req)
				}
			}
		}()
	}
}

// Stop stops the workers and waits for in-flight runs.
func (p *AnalysisPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stop := p.stopCh
	p.mu.Unlock()
	close(stop)
	p.wg.Wait()
}

// Submit validates, throttles and buffers req. A throttled request is dropped silently;
// Refresh requests bypass the throttle.
func (p *AnalysisPipeline) Submit(ctx context.Context, req models.AnalyzeRequest) error {
	if err := validateRequest(&req); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !req.Refresh && !p.allow(req.Symbol, p.now()) {
		p.metrics.RecordError("pipeline_throttle")
		p.logger.Debug("analysis request throttled", applogger.String("symbol", req.Symbol))
		return nil
	}

	select {
	case p.bufCh <- req:
		p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		return ErrBufferFull
	}
}

// run processes one request, retrying transient failures with exponential backoff.
// Invalid input is never retried.
func (p *AnalysisPipeline) run(ctx context.Context, stop <-chan struct{}, req models.AnalyzeRequest) {
	start := p.now()
	backoff := p.backoffMin
	for attempt := 0; ; attempt++ {
		err := p.proc.Process(ctx, req)
		if err == nil {
			p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
			return
		}
		p.metrics.RecordError("pipeline_process")
		if models.IsInvalidInput(err) || attempt >= p.retryMax {
			p.metrics.RecordError("pipeline_drop")
			p.logger.Warn("analysis request dropped",
				applogger.String("symbol", req.Symbol),
				applogger.Int("attempts", attempt+1),
				applogger.Error(err))
			return
		}

		select {
		case <-time.After(backoff):
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
		if backoff *= 2; backoff > p.backoffMax {
			backoff = p.backoffMax
		}
	}
}

func validateRequest(req *models.AnalyzeRequest) error {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return models.Invalid("symbol", "required")
	}
	if len(req.Symbol) > 16 {
		return models.Invalid("symbol", "too long")
	}
	if req.N < 0 {
		return models.Invalid("n", "must not be negative")
	}
	return nil
}

func (p *AnalysisPipeline) allow(symbol string, now time.Time) bool {
	if p.throttle <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[symbol]
	if ok && now.Sub(last) < p.throttle {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}

// Depth reports how many requests wait in the buffer.
func (p *AnalysisPipeline) Depth() int { return len(p.bufCh) }
