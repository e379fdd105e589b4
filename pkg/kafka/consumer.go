package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	applogger "FinScope/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type delivery struct {
	topic string
	km    kafka.Message
}

type partitionKey struct {
	topic     string
	partition int
}

type consumerMetrics struct {
	queueDepth *prometheus.GaugeVec
	handled    *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func newConsumerMetrics(reg prometheus.Registerer) *consumerMetrics {
	return &consumerMetrics{
		queueDepth: register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "finscope_kafka_consumer_queue_depth",
			Help: "Fetched messages waiting for a worker",
		}, []string{"topic"})),
		handled: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finscope_kafka_consumer_messages_total",
			Help: "Consumed messages by topic and outcome (ok, dlq, failed)",
		}, []string{"topic", "outcome"})),
		latency: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finscope_kafka_consumer_handle_seconds",
			Help:    "Handling time per message including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})),
	}
}

// Consumer fans messages from one reader per topic into a worker pool. Messages of one
// partition are handled one at a time so per-symbol order survives any worker count.
type Consumer struct {
	cfg     ConsumerConfig
	logger  *applogger.Logger
	hook    ConsumerHook
	metrics *consumerMetrics

	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	dlq      *kafka.Writer

	queue   chan delivery
	cancel  context.CancelFunc
	fetchWG sync.WaitGroup
	workWG  sync.WaitGroup

	lockMu sync.Mutex
	locks  map[partitionKey]*sync.Mutex

	stopOnce sync.Once
}

func NewConsumer(cfg ConsumerConfig, opts ...Option) (*Consumer, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	c := &Consumer{
		cfg:      cfg,
		logger:   o.logger,
		hook:     o.hook,
		metrics:  newConsumerMetrics(o.reg),
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		queue:    make(chan delivery, cfg.BufferSize),
		locks:    make(map[partitionKey]*sync.Mutex),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.Hash{}}
	}
	return c, nil
}

// RegisterHandler must be called before Start. The first handler for a topic wins.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, dup := c.handlers[h.Topic()]; dup {
		c.logger.Warn("kafka handler already registered", applogger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

// Start opens the readers and launches the fetch loops and workers. It does not block.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handlers registered")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			GroupID:  c.cfg.GroupID,
			Topic:    topic,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
	}
	for i := 0; i < c.cfg.Workers; i++ {
		c.workWG.Add(1)
		go c.work(ctx)
	}
	for topic, r := range c.readers {
		c.fetchWG.Add(1)
		go c.fetch(ctx, topic, r)
	}
	c.logger.Info("kafka consumer running",
		applogger.String("group", c.cfg.GroupID),
		applogger.Int("workers", c.cfg.Workers),
		applogger.Int("topics", len(c.readers)))
	return nil
}

// Stop halts fetching, lets workers drain what was already fetched, then closes the readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.cancel()
		c.fetchWG.Wait()
		close(c.queue)

		done := make(chan struct{})
		go func() {
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer drain: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.logger.Warn("kafka reader close", applogger.String("topic", topic), applogger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.logger.Warn("kafka dlq close", applogger.Error(cerr))
			}
		}
	})
	return err
}

// fetch uses FetchMessage so offsets are committed only after handling.
func (c *Consumer) fetch(ctx context.Context, topic string, r *kafka.Reader) {
	defer c.fetchWG.Done()
	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("kafka fetch failed", applogger.String("topic", topic), applogger.Error(err))
			if !sleepCtx(ctx, c.cfg.BackoffMax) {
				return
			}
			continue
		}
		select {
		case c.queue <- delivery{topic: topic, km: km}:
			c.metrics.queueDepth.WithLabelValues(topic).Set(float64(len(c.queue)))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) work(ctx context.Context) {
	defer c.workWG.Done()
	for d := range c.queue {
		c.process(ctx, d)
	}
}

func (c *Consumer) process(ctx context.Context, d delivery) {
	h, ok := c.handlers[d.topic]
	if !ok {
		return
	}
	lock := c.partitionLock(d.topic, d.km.Partition)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	err := c.handleWithRetry(ctx, h, d)
	c.metrics.latency.WithLabelValues(d.topic).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		c.hook.Failed(context.Background(), &Delivery{Topic: d.topic, Message: d.km, Data: d.km.Value}, err)
		outcome = "failed"
		if c.dlq != nil {
			if derr := c.deadLetter(d, err); derr != nil {
				c.logger.Error("kafka dlq write failed", applogger.String("topic", d.topic), applogger.Error(derr))
			} else {
				outcome = "dlq"
			}
		}
	}
	c.metrics.handled.WithLabelValues(d.topic, outcome).Inc()

	// a failure that did not reach the DLQ stays uncommitted and is redelivered after a rebalance
	if outcome == "failed" {
		return
	}
	if err := c.commit(d); err != nil {
		c.logger.Warn("kafka commit failed", applogger.String("topic", d.topic), applogger.Error(err))
	}
}

// handleWithRetry runs the handler up to RetryMax+1 times. A hook rejection is final.
func (c *Consumer) handleWithRetry(ctx context.Context, h MessageHandler, d delivery) (err error) {
	for attempt := 1; ; attempt++ {
		hd := &Delivery{Topic: d.topic, Message: d.km, Data: d.km.Value}
		hctx, herr := c.hook.Before(context.Background(), hd)
		if herr != nil {
			return herr
		}
		err = safeHandle(hctx, h, hd.Data)
		c.hook.After(hctx, hd, err)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		// stopping does not abort a retry loop early; it only shortens the wait
		wait := backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)
		if ctx.Err() != nil {
			wait = c.cfg.BackoffMin
		}
		time.Sleep(wait)
	}
}

func (c *Consumer) deadLetter(d delivery, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   d.km.Key,
		Value: d.km.Value,
		Headers: append(d.km.Headers,
			kafka.Header{Key: "source_topic", Value: []byte(d.topic)},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
		),
	})
}

func (c *Consumer) commit(d delivery) error {
	r := c.readers[d.topic]
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, d.km)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(backoff(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	return err
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	k := partitionKey{topic: topic, partition: partition}
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	l, ok := c.locks[k]
	if !ok {
		l = &sync.Mutex{}
		c.locks[k] = l
	}
	return l
}

func safeHandle(ctx context.Context, h MessageHandler, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Rejection{Code: "ERR_PANIC", Err: fmt.Errorf("handler %s: %v", h.Topic(), r)}
		}
	}()
	return h.Handle(ctx, data)
}

// backoff doubles from min per attempt, capped at max, minus up to half as jitter.
func backoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := max
	if attempt < 31 {
		if exp := min << uint(attempt-1); exp > 0 && exp < max {
			d = exp
		}
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int63n(half))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
