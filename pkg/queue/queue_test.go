package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backtestRequest struct {
	Symbol     string   `json:"symbol"`
	Strategies []string `json:"strategies"`
}

type noopJob struct{ typ string }

func (j noopJob) Name() string                                 { return "noop" }
func (j noopJob) Type() string                                 { return j.typ }
func (j noopJob) Handle(context.Context, json.RawMessage) error { return nil }

func TestDecode(t *testing.T) {
	req, err := Decode[backtestRequest](json.RawMessage(`{"symbol":"AAPL","strategies":["rsi_reversion"]}`))
	require.NoError(t, err)
	assert.Equal(t, backtestRequest{Symbol: "AAPL", Strategies: []string{"rsi_reversion"}}, req)

	_, err = Decode[backtestRequest](nil)
	assert.Error(t, err)
	_, err = Decode[backtestRequest](json.RawMessage(`"AAPL"`))
	assert.Error(t, err)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	body, err := json.Marshal(backtestRequest{Symbol: "MSFT"})
	require.NoError(t, err)
	in := envelope{ID: "1", Type: "backtest.run", Payload: body, Attempts: 2}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out envelope
	require.NoError(t, json.Unmarshal(data, &out))
	req, err := Decode[backtestRequest](out.Payload)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", req.Symbol)
	assert.Equal(t, 2, out.Attempts)
}

func TestRetryDelayDoubles(t *testing.T) {
	base := 5 * time.Second
	assert.Equal(t, base, retryDelay(base, 0))
	assert.Equal(t, base, retryDelay(base, 1))
	assert.Equal(t, 4*base, retryDelay(base, 3))
	assert.Equal(t, retryDelay(base, 10), retryDelay(base, 50))
}

func TestEnqueueRequiresRunningQueueAndKnownType(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	q, err := NewRedisQueue(nil, Config{}, client)
	require.NoError(t, err)
	assert.Equal(t, "finscope:jobs:pending", q.key("pending"))
	assert.Equal(t, 1, q.cfg.Workers)

	q.RegisterJob(noopJob{typ: "backtest.run"})
	q.RegisterJob(noopJob{typ: "backtest.run"})
	assert.Len(t, q.jobs, 1)

	_, err = q.Enqueue(context.Background(), "backtest.run", backtestRequest{Symbol: "AAPL"})
	assert.ErrorIs(t, err, ErrNotRunning)

	// flip the flag without touching redis to reach the type check
	q.running = true
	_, err = q.Enqueue(context.Background(), "report.rebuild", nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestNewRedisQueueNeedsClient(t *testing.T) {
	_, err := NewRedisQueue(nil, Config{}, nil)
	assert.Error(t, err)
}
