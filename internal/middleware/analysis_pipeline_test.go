package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
	"FinScope/pkg/metrics"
)

type fakeProc struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (f *fakeProc) Process(_ context.Context, req models.AnalyzeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Symbol)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeProc) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSubmitThrottlesPerSymbol(t *testing.T) {
	p := NewAnalysisPipeline(&fakeProc{}, metrics.Nop{}, WithThrottle(time.Hour))
	ctx := context.Background()

	require.NoError(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "aapl"}))
	require.NoError(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "AAPL"}))
	assert.Equal(t, 1, p.Depth(), "second request inside the window is dropped")

	require.NoError(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "MSFT"}))
	require.NoError(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "AAPL", Refresh: true}))
	assert.Equal(t, 3, p.Depth())
}

func TestSubmitRejectsInvalid(t *testing.T) {
	p := NewAnalysisPipeline(&fakeProc{}, metrics.Nop{})
	err := p.Submit(context.Background(), models.AnalyzeRequest{Symbol: "  "})
	assert.True(t, models.IsInvalidInput(err))
}

func TestSubmitBufferFull(t *testing.T) {
	p := NewAnalysisPipeline(&fakeProc{}, metrics.Nop{}, WithBufferSize(1), WithThrottle(0))
	ctx := context.Background()
	require.NoError(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "A"}))
	assert.ErrorIs(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "B"}), ErrBufferFull)
}

func TestRetriesTransientFailures(t *testing.T) {
	proc := &fakeProc{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	p := NewAnalysisPipeline(proc, metrics.Nop{}, WithRetry(3, time.Millisecond, 2*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	require.NoError(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "AAPL"}))
	require.Eventually(t, func() bool { return proc.count() == 3 }, time.Second, 5*time.Millisecond)
}

func TestInvalidInputNotRetried(t *testing.T) {
	proc := &fakeProc{errs: []error{models.Invalid("prices", "no price history")}}
	p := NewAnalysisPipeline(proc, metrics.Nop{}, WithRetry(3, time.Millisecond, time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	require.NoError(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "AAPL"}))
	require.Eventually(t, func() bool { return proc.count() == 1 }, time.Second, 5*time.Millisecond)
	p.Stop()
	assert.Equal(t, 1, proc.count())
}

func TestRetryBudgetExhausted(t *testing.T) {
	fail := errors.New("down")
	proc := &fakeProc{errs: []error{fail, fail, fail, fail, fail}}
	p := NewAnalysisPipeline(proc, metrics.Nop{}, WithRetry(2, time.Millisecond, time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	require.NoError(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "AAPL"}))
	require.Eventually(t, func() bool { return proc.count() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	p.Stop()
	assert.Equal(t, 3, proc.count())
}

func TestPipelineRestartsAfterStop(t *testing.T) {
	proc := &fakeProc{}
	p := NewAnalysisPipeline(proc, metrics.Nop{}, WithThrottle(0))
	ctx := context.Background()

	p.Start(ctx)
	require.NoError(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "AAPL"}))
	require.Eventually(t, func() bool { return proc.count() == 1 }, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()

	require.NoError(t, p.Submit(ctx, models.AnalyzeRequest{Symbol: "MSFT"}))
	assert.Equal(t, 1, p.Depth(), "nothing drains while stopped")

	p.Start(ctx)
	defer p.Stop()
	require.Eventually(t, func() bool { return proc.count() == 2 }, time.Second, 5*time.Millisecond)
}

type gateProc struct {
	running sync.WaitGroup
	release chan struct{}
}

func (g *gateProc) Process(context.Context, models.AnalyzeRequest) error {
	g.running.Done()
	<-g.release
	return nil
}

func TestWorkersRunConcurrently(t *testing.T) {
	g := &gateProc{release: make(chan struct{})}
	g.running.Add(3)
	p := NewAnalysisPipeline(g, metrics.Nop{}, WithWorkers(3), WithThrottle(0))
	for _, s := range []string{"AAPL", "MSFT", "NVDA"} {
		require.NoError(t, p.Submit(t.Context(), models.AnalyzeRequest{Symbol: s}))
	}
	p.Start(t.Context())

	started := make(chan struct{})
	go func() { g.running.Wait(); close(started) }()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("three workers did not pick up three requests")
	}
	close(g.release)
	p.Stop()

	assert.Equal(t, 2, NewAnalysisPipeline(g, metrics.Nop{}, WithWorkers(0)).workers)
}
