package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	applogger "FinScope/pkg/logger"
)

// Message is one record to publish. Value may be []byte, string or any JSON-encodable value.
type Message struct {
	Key   []byte
	Value any
}

type producerMetrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newProducerMetrics(reg prometheus.Registerer) *producerMetrics {
	return &producerMetrics{
		messages: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finscope_kafka_producer_messages_total",
			Help: "Messages written to Kafka by topic and result",
		}, []string{"topic", "result"})),
		bytes: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finscope_kafka_producer_bytes_total",
			Help: "Payload bytes written to Kafka",
		}, []string{"topic"})),
		latency: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finscope_kafka_producer_write_seconds",
			Help:    "Kafka write latency per call",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})),
	}
}

func (m *producerMetrics) observe(topic string, n int, size int64, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.messages.WithLabelValues(topic, result).Add(float64(n))
	m.bytes.WithLabelValues(topic).Add(float64(size))
	m.latency.WithLabelValues(topic).Observe(took.Seconds())
}

// Producer publishes JSON payloads through a single kafka-go writer shared by all topics.
type Producer struct {
	writer  *kafka.Writer
	metrics *producerMetrics
	logger  *applogger.Logger
}

func NewProducer(cfg ProducerConfig, opts ...Option) (*Producer, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	var balancer kafka.Balancer = &kafka.LeastBytes{}
	if cfg.KeyedOrdering {
		balancer = &kafka.Hash{}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     balancer,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  compressionCodec(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   cfg.BatchBytes,
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
	}
	if cfg.Async {
		logger := o.logger
		w.Completion = func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Warn("async kafka write failed", applogger.Int("messages", len(msgs)), applogger.Error(err))
			}
		}
	}
	return &Producer{writer: w, metrics: newProducerMetrics(o.reg), logger: o.logger}, nil
}

// Publish writes one message to topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value any) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishBatch encodes every message first so a bad payload writes nothing.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	now := time.Now()
	batch := make([]kafka.Message, len(messages))
	var size int64
	for i, m := range messages {
		v, err := encodeValue(m.Value)
		if err != nil {
			return fmt.Errorf("kafka message %d for %s: %w", i, topic, err)
		}
		batch[i] = kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: now}
		size += int64(len(v))
	}

	err := p.writer.WriteMessages(ctx, batch...)
	p.metrics.observe(topic, len(batch), size, time.Since(now), err)
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encodeValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	case json.RawMessage:
		return val, nil
	}
	return json.Marshal(v)
}

func compressionCodec(name string) kafka.Compression {
	switch name {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	}
	return kafka.Gzip
}
