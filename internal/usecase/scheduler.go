package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"FinScope/internal/domain/models"
	applogger "FinScope/pkg/logger"
)

// Scheduler runs the periodic jobs: analysis of the watch list, vendor ingestion and
// accuracy scoring of due predictions.
type Scheduler struct {
	cron     *cron.Cron
	sub      RequestSubmitter
	ingest   *IngestUseCase
	accuracy *AccuracyUseCase
	symbols  []string
	logger   *applogger.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewScheduler creates a scheduler. ingest and accuracy may be nil.
func NewScheduler(sub RequestSubmitter, ingest *IngestUseCase, accuracy *AccuracyUseCase, symbols []string, lgr *applogger.Logger) *Scheduler {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	return &Scheduler{
		cron:     cron.New(),
		sub:      sub,
		ingest:   ingest,
		accuracy: accuracy,
		symbols:  symbols,
		logger:   lgr,
	}
}

// Register adds the analysis job on analyzeSpec and, when configured, ingestion and
// accuracy scoring on ingestSpec. Specs use the standard five field cron syntax.
func (s *Scheduler) Register(analyzeSpec, ingestSpec string) error {
	if _, err := s.cron.AddFunc(analyzeSpec, s.RunAnalysis); err != nil {
		return fmt.Errorf("register analysis job: %w", err)
	}
	if ingestSpec == "" || (s.ingest == nil && s.accuracy == nil) {
		return nil
	}
	if _, err := s.cron.AddFunc(ingestSpec, s.RunIngest); err != nil {
		return fmt.Errorf("register ingest job: %w", err)
	}
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", applogger.Int("symbols", len(s.symbols)), applogger.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.cancel()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// RunAnalysis submits one request per watched symbol.
func (s *Scheduler) RunAnalysis() {
	ctx := s.runCtx()
	submitted := 0
	for _, sym := range s.symbols {
		if err := s.sub.Submit(ctx, models.AnalyzeRequest{Symbol: sym}); err != nil {
			s.logger.Warn("scheduled analysis not submitted", applogger.String("symbol", sym), applogger.Error(err))
			continue
		}
		submitted++
	}
	s.logger.Info("scheduled analysis submitted", applogger.Int("symbols", submitted))
}

// RunIngest refreshes vendor data and then scores predictions that came due.
func (s *Scheduler) RunIngest() {
	ctx := s.runCtx()
	if s.ingest != nil {
		if _, err := s.ingest.IngestRecent(ctx, s.symbols, 10); err != nil {
			s.logger.Error("scheduled ingest", applogger.Error(err))
		}
	}
	if s.accuracy == nil {
		return
	}
	for _, sym := range s.symbols {
		if _, err := s.accuracy.Evaluate(ctx, sym); err != nil {
			s.logger.Warn("scheduled accuracy evaluation failed", applogger.String("symbol", sym), applogger.Error(err))
		}
	}
}
