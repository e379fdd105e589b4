package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	topic string
	fn    func([]byte) error
}

func (s stubHandler) Topic() string { return s.topic }

func (s stubHandler) Handle(_ context.Context, b []byte) error { return s.fn(b) }

func TestConfigDefaults(t *testing.T) {
	pc := ProducerConfig{Brokers: []string{"localhost:9092"}, Compression: "zstd"}
	require.NoError(t, pc.normalize())
	assert.Equal(t, -1, pc.RequiredAcks)
	assert.Equal(t, "zstd", pc.Compression)
	assert.Equal(t, int64(1048576), pc.BatchBytes)
	assert.Equal(t, time.Second, pc.BatchTimeout)

	cc := ConsumerConfig{Brokers: []string{"localhost:9092"}, BackoffMin: time.Second, BackoffMax: time.Millisecond}
	require.NoError(t, cc.normalize())
	assert.Equal(t, "finscope", cc.GroupID)
	assert.Equal(t, time.Second, cc.BackoffMax)

	assert.ErrorIs(t, (&ProducerConfig{}).normalize(), ErrNoBrokers)
	_, err := NewConsumer(ConsumerConfig{})
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue(map[string]float64{"close": 190.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"close":190.5}`, string(b))

	b, err = encodeValue(json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(b))

	_, err = encodeValue(func() {})
	assert.Error(t, err)
}

func TestCompressionCodec(t *testing.T) {
	assert.Equal(t, kafka.Snappy, compressionCodec("snappy"))
	assert.Equal(t, kafka.Zstd, compressionCodec("zstd"))
	assert.Equal(t, kafka.Gzip, compressionCodec("bogus"))
}

func TestBackoffBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoff(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
	assert.LessOrEqual(t, backoff(min, max, 1), min)
}

func TestConsumerRegisterAndRetry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewConsumer(ConsumerConfig{
		Brokers:    []string{"localhost:9092"},
		RetryMax:   2,
		BackoffMin: time.Millisecond,
		BackoffMax: 2 * time.Millisecond,
	}, WithRegisterer(reg))
	require.NoError(t, err)

	calls := 0
	flaky := stubHandler{topic: "finscope.requests", fn: func([]byte) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}}
	c.RegisterHandler(flaky)
	c.RegisterHandler(stubHandler{topic: "finscope.requests", fn: func([]byte) error { return errors.New("never used") }})
	require.Len(t, c.handlers, 1)

	err = c.handleWithRetry(context.Background(), c.handlers["finscope.requests"], delivery{topic: "finscope.requests"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = -10
	err = c.handleWithRetry(context.Background(), flaky, delivery{topic: "finscope.requests"})
	assert.Error(t, err)
	assert.Equal(t, -7, calls)
}

func TestConsumerHookRejectionSkipsHandler(t *testing.T) {
	reject := HookFunc{OnBefore: func(ctx context.Context, _ *Delivery) (context.Context, error) {
		return ctx, &Rejection{Code: "ERR_EMPTY"}
	}}
	c, err := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}}, WithRegisterer(nil), WithHook(reject))
	require.NoError(t, err)

	called := false
	h := stubHandler{topic: "t", fn: func([]byte) error { called = true; return nil }}
	err = c.handleWithRetry(context.Background(), h, delivery{topic: "t"})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestSafeHandleRecoversPanic(t *testing.T) {
	err := safeHandle(context.Background(), stubHandler{topic: "t", fn: func([]byte) error { panic("bad payload") }}, nil)
	var he *Rejection
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_PANIC", he.Code)
}

func TestStartWithoutHandlers(t *testing.T) {
	c, err := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}}, WithRegisterer(nil))
	require.NoError(t, err)
	assert.Error(t, c.Start())
	assert.NoError(t, c.Stop(context.Background()))
}

func TestRegisterReusesCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newProducerMetrics(reg)
	b := newProducerMetrics(reg)
	assert.Same(t, a.messages, b.messages)
}
