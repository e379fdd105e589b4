package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"5s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		RateLimit       struct {
			Capacity int `yaml:"capacity" default:"30"`
			Refill   int `yaml:"refill_per_sec" default:"5"`
		} `yaml:"rate_limit"`
		WebSocket struct {
			PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
			SendBuffer   int           `yaml:"send_buffer" default:"32"`
		} `yaml:"websocket"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
		Digest struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
		} `yaml:"digest"`
	} `yaml:"log"`
	Analysis struct {
		Timeout          time.Duration `yaml:"timeout" default:"20s"`
		ProviderTimeout  time.Duration `yaml:"provider_timeout" default:"8s"`
		SentimentTimeout time.Duration `yaml:"sentiment_timeout" default:"12s"`
		Interval         string        `yaml:"interval" default:"1d"`
		Lookback         int           `yaml:"lookback" default:"300"`
		Weights          struct {
			Technical   float64 `yaml:"technical" default:"0.25"`
			Fundamental float64 `yaml:"fundamental" default:"0.25"`
			Sentiment   float64 `yaml:"sentiment" default:"0.25"`
			Macro       float64 `yaml:"macro" default:"0.25"`
		} `yaml:"weights"`
		MacroScore   float64       `yaml:"macro_score" default:"0.5"`
		ScenarioBand float64       `yaml:"scenario_band" default:"0.05"`
		TimeFrame    string        `yaml:"time_frame" default:"30d"`
		Benchmark    string        `yaml:"benchmark" default:"SPY"`
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"5m"`
		LockTTL      time.Duration `yaml:"lock_ttl" default:"30s"`
	} `yaml:"analysis"`
	Indicators struct {
		SMAShort         int     `yaml:"sma_short" default:"20"`
		SMALong          int     `yaml:"sma_long" default:"50"`
		EMAFast          int     `yaml:"ema_fast" default:"12"`
		EMASlow          int     `yaml:"ema_slow" default:"26"`
		MACDSignal       int     `yaml:"macd_signal" default:"9"`
		RSI              int     `yaml:"rsi" default:"14"`
		Bollinger        int     `yaml:"bollinger" default:"20"`
		BollingerK       float64 `yaml:"bollinger_k" default:"2"`
		Stochastic       int     `yaml:"stochastic" default:"14"`
		StochasticD      int     `yaml:"stochastic_d" default:"3"`
		Williams         int     `yaml:"williams" default:"14"`
		OBVLookback      int     `yaml:"obv_lookback" default:"5"`
		VolatilityWindow int     `yaml:"volatility_window" default:"20"`
	} `yaml:"indicators"`
	Backtest struct {
		InitialCapital   float64 `yaml:"initial_capital" default:"10000"`
		CommissionRate   float64 `yaml:"commission_rate" default:"0.001"`
		CommissionFixed  float64 `yaml:"commission_fixed" default:"0"`
		SlippageRate     float64 `yaml:"slippage_rate" default:"0.0005"`
		PositionFraction float64 `yaml:"position_fraction" default:"1"`
		Workers          int     `yaml:"workers" default:"4"`
		Lookback         int     `yaml:"lookback" default:"750"`
	} `yaml:"backtest"`
	Providers struct {
		Prices          string        `yaml:"prices" default:"clickhouse"`
		FundamentalsTTL time.Duration `yaml:"fundamentals_ttl" default:"12h"`
		EODHD           struct {
			APIKey    string        `yaml:"api_key"`
			BaseURL   string        `yaml:"base_url" default:"https://eodhd.com/api"`
			RateLimit float64       `yaml:"rate_limit" default:"5"`
			Burst     int           `yaml:"burst" default:"5"`
			Timeout   time.Duration `yaml:"timeout" default:"10s"`
		} `yaml:"eodhd"`
	} `yaml:"providers"`
	Sentiment struct {
		Provider    string        `yaml:"provider" default:"rule_based"`
		Model       string        `yaml:"model"`
		APIKey      string        `yaml:"api_key"`
		URL         string        `yaml:"url"`
		Timeout     time.Duration `yaml:"timeout" default:"10s"`
		Retries     int           `yaml:"retries" default:"2"`
		MaxTokens   int           `yaml:"max_tokens" default:"512"`
		Temperature float64       `yaml:"temperature" default:"0.2"`
	} `yaml:"sentiment"`
	Sink struct {
		Backend      string        `yaml:"backend" default:"none"`
		BatchSize    int           `yaml:"batch_size" default:"50"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s"`
	} `yaml:"sink"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"finscope.reports"`
		RequestTopic string   `yaml:"request_topic" default:"finscope.analysis.requests"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"finscope-analysis"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"finscope"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"2"`
		QueueSize  int           `yaml:"queue_size" default:"100"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
	} `yaml:"queue"`
	Pipeline struct {
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"128"`
		Throttle   time.Duration `yaml:"throttle" default:"1m"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"1s"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"30s"`
	} `yaml:"pipeline"`
	Scheduler struct {
		Enabled bool     `yaml:"enabled"`
		Spec    string   `yaml:"spec" default:"0 22 * * 1-5"`
		Ingest  string   `yaml:"ingest_spec" default:"30 21 * * 1-5"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"scheduler"`
	History struct {
		Path string `yaml:"path" default:"finscope_history.db"`
	} `yaml:"history"`
	Strategies struct {
		File        string `yaml:"file"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"strategies"`
}

// Load reads and parses a YAML configuration file. Unset fields take their defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Default returns a configuration built from defaults only.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		c.Providers.EODHD.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && c.Sentiment.Provider == "anthropic" {
		c.Sentiment.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.Sentiment.Provider == "gemini" {
		c.Sentiment.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Scheduler.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("SINK_BACKEND"); v != "" {
		c.Sink.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Strategies.PostgresDSN = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Sink.Backend {
	case "kafka", "clickhouse", "none":
	default:
		return fmt.Errorf("sink.backend must be 'kafka', 'clickhouse' or 'none', got '%s'", c.Sink.Backend)
	}
	if c.Sink.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty with the kafka sink")
	}
	switch c.Providers.Prices {
	case "clickhouse", "eodhd":
	default:
		return fmt.Errorf("providers.prices must be 'clickhouse' or 'eodhd', got '%s'", c.Providers.Prices)
	}
	if c.Providers.Prices == "eodhd" && c.Providers.EODHD.APIKey == "" {
		return fmt.Errorf("providers.eodhd.api_key is required")
	}
	switch c.Sentiment.Provider {
	case "rule_based":
	case "http":
		if c.Sentiment.URL == "" {
			return fmt.Errorf("sentiment.url is required for the http provider")
		}
	case "anthropic", "gemini":
		if c.Sentiment.APIKey == "" {
			return fmt.Errorf("sentiment.api_key is required for the %s provider", c.Sentiment.Provider)
		}
	default:
		return fmt.Errorf("sentiment.provider must be one of rule_based, http, anthropic, gemini, got '%s'", c.Sentiment.Provider)
	}
	if c.Scheduler.Enabled && len(c.Scheduler.Symbols) == 0 {
		return fmt.Errorf("scheduler.symbols cannot be empty when the scheduler is enabled")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue requires redis.enabled")
	}
	if c.Log.Digest.Enabled && !c.Queue.Enabled {
		return fmt.Errorf("log.digest requires queue.enabled")
	}
	if c.Analysis.MacroScore < 0 || c.Analysis.MacroScore > 1 {
		return fmt.Errorf("analysis.macro_score must be within [0,1]")
	}
	return c.validateIndicators()
}

func (c *Config) validateIndicators() error {
	in := c.Indicators
	periods := []struct {
		name string
		v    int
	}{
		{"sma_short", in.SMAShort}, {"sma_long", in.SMALong},
		{"ema_fast", in.EMAFast}, {"ema_slow", in.EMASlow}, {"macd_signal", in.MACDSignal},
		{"rsi", in.RSI}, {"bollinger", in.Bollinger},
		{"stochastic", in.Stochastic}, {"stochastic_d", in.StochasticD},
		{"williams", in.Williams}, {"obv_lookback", in.OBVLookback},
		{"volatility_window", in.VolatilityWindow},
	}
	for _, p := range periods {
		if p.v < 1 {
			return fmt.Errorf("indicators.%s must be at least 1, got %d", p.name, p.v)
		}
	}
	if in.SMAShort >= in.SMALong {
		return fmt.Errorf("indicators.sma_short must be below sma_long")
	}
	if in.EMAFast >= in.EMASlow {
		return fmt.Errorf("indicators.ema_fast must be below ema_slow")
	}
	if in.BollingerK <= 0 {
		return fmt.Errorf("indicators.bollinger_k must be positive")
	}
	return nil
}
