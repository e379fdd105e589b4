package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
	"FinScope/pkg/metrics"
)

func report(sym string) *models.AnalysisReport {
	return &models.AnalysisReport{ID: sym + "-1", Symbol: sym, GeneratedAt: time.Now()}
}

func TestReportProcessorRoutesByBackend(t *testing.T) {
	ctx := context.Background()

	pub := &fakePublisher{}
	kp := NewReportProcessor(pub, nil, metrics.Nop{}, nil, "kafka", 1, 0)
	require.NoError(t, kp.Record(ctx, report("AAPL")))
	assert.Len(t, pub.published, 1)

	store := &fakeStorage{}
	cp := NewReportProcessor(nil, store, metrics.Nop{}, nil, "clickhouse", 1, 0)
	require.NoError(t, cp.Record(ctx, report("MSFT")))
	assert.Equal(t, 1, store.count())

	np := NewReportProcessor(nil, nil, metrics.Nop{}, nil, "none", 1, 0)
	assert.NoError(t, np.Record(ctx, report("AAPL")))

	bad := NewReportProcessor(nil, nil, metrics.Nop{}, nil, "s3", 1, 0)
	assert.Error(t, bad.Record(ctx, report("AAPL")))
	assert.Error(t, kp.Record(ctx, nil))
}

func TestReportProcessorStoreError(t *testing.T) {
	store := &fakeStorage{err: errors.New("ch down")}
	p := NewReportProcessor(nil, store, metrics.Nop{}, nil, "clickhouse", 1, 0)
	assert.ErrorContains(t, p.Record(context.Background(), report("AAPL")), "ch down")
}

func TestReportProcessorBatchesBySize(t *testing.T) {
	store := &fakeStorage{}
	p := NewReportProcessor(nil, store, metrics.Nop{}, nil, "clickhouse", 3, time.Hour)
	ctx := context.Background()

	require.NoError(t, p.Record(ctx, report("A")))
	require.NoError(t, p.Record(ctx, report("B")))
	assert.Equal(t, 0, store.count())

	require.NoError(t, p.Record(ctx, report("C")))
	assert.Equal(t, 3, store.count())
	assert.Equal(t, 1, store.batches)
}

func TestReportProcessorTimedFlush(t *testing.T) {
	store := &fakeStorage{}
	p := NewReportProcessor(nil, store, metrics.Nop{}, nil, "clickhouse", 100, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	require.NoError(t, p.Record(ctx, report("A")))
	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 10*time.Millisecond)
	p.Close()
}

func TestReportProcessorCloseFlushes(t *testing.T) {
	store := &fakeStorage{}
	p := NewReportProcessor(nil, store, metrics.Nop{}, nil, "clickhouse", 100, time.Hour)
	p.Start(context.Background())

	require.NoError(t, p.Record(context.Background(), report("A")))
	require.NoError(t, p.Record(context.Background(), report("B")))
	p.Close()

	assert.Equal(t, 2, store.count())
	assert.True(t, store.closed)
}

func TestReportProcessorStartCloseReturns(t *testing.T) {
	for i := 0; i < 50; i++ {
		store := &fakeStorage{}
		p := NewReportProcessor(nil, store, metrics.Nop{}, nil, "clickhouse", 10, time.Hour)
		p.Start(context.Background())

		closed := make(chan struct{})
		go func() {
			p.Close()
			close(closed)
		}()
		select {
		case <-closed:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d: Close did not return", i)
		}

		// a closed processor stays closed
		p.Start(context.Background())
		p.Close()
		assert.True(t, store.closed)
	}
}

func TestReportProcessorCloseWithoutStart(t *testing.T) {
	store := &fakeStorage{}
	p := NewReportProcessor(nil, store, metrics.Nop{}, nil, "clickhouse", 10, time.Hour)
	require.NoError(t, p.Record(context.Background(), report("A")))
	p.Close()
	p.Close()
	p.Start(context.Background())
	assert.Nil(t, p.done, "closed processor must not start a flusher")
	assert.Equal(t, 1, store.count())
}
