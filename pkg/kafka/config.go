package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/prometheus/client_golang/prometheus"

	applogger "FinScope/pkg/logger"
)

var ErrNoBrokers = errors.New("kafka: at least one broker is required")

// ProducerConfig describes the report writer. Zero fields take the tag defaults.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int           `default:"-1"`
	Compression  string        `default:"gzip"`
	MaxAttempts  int           `default:"3"`
	WriteTimeout time.Duration `default:"10s"`
	ReadTimeout  time.Duration `default:"10s"`
	BatchSize    int           `default:"100"`
	BatchBytes   int64         `default:"1048576"`
	BatchTimeout time.Duration `default:"1s"`
	Async        bool
	// KeyedOrdering routes equal keys (symbols) to one partition.
	KeyedOrdering bool
}

// ConsumerConfig describes a consumer group reading one reader per registered topic.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string        `default:"finscope"`
	Workers    int           `default:"1"`
	BufferSize int           `default:"16"`
	RetryMax   int           `default:"3"`
	BackoffMin time.Duration `default:"50ms"`
	BackoffMax time.Duration `default:"2s"`
	// DLQTopic receives messages that still fail after RetryMax retries. Empty disables it,
	// and a failed message is then left uncommitted.
	DLQTopic string
	MinBytes int `default:"1"`
	MaxBytes int `default:"10485760"`
}

func (c *ProducerConfig) normalize() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("kafka producer defaults: %w", err)
	}
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	return nil
}

func (c *ConsumerConfig) normalize() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("kafka consumer defaults: %w", err)
	}
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = c.BackoffMin
	}
	return nil
}

type options struct {
	logger *applogger.Logger
	reg    prometheus.Registerer
	hook   ConsumerHook
}

// Option tunes a Producer or Consumer beyond its config.
type Option func(*options)

func WithLogger(l *applogger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegisterer registers client metrics on reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// WithHook installs lifecycle hooks around every consumed message. Producers ignore it.
func WithHook(h ConsumerHook) Option {
	return func(o *options) {
		if h != nil {
			o.hook = h
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: applogger.Nop(), reg: prometheus.DefaultRegisterer, hook: nopHook{}}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// register adds c to reg, reusing the collector already registered under the same name.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
