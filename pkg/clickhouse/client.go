// Package clickhouse opens the pooled connection used by the price store and
// the report storage.
package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/creasty/defaults"
)

type Config struct {
	Host     string
	Port     int `default:"9000"`
	Database string `default:"finscope"`
	User     string `default:"default"`
	Password string

	// UseHTTP talks to port 8123 style endpoints instead of the native protocol.
	UseHTTP bool
	// AsyncInsert lets the server buffer small report batches. WaitForAsync makes
	// the insert return only after the buffer is flushed.
	AsyncInsert  bool
	WaitForAsync bool

	MaxOpenConns    int           `default:"10"`
	MaxIdleConns    int           `default:"5"`
	ConnMaxLifetime time.Duration `default:"5m"`
	DialTimeout     time.Duration `default:"5s"`
	ReadTimeout     time.Duration `default:"30s"`
	// MaxExecutionTime is enforced server side, in whole seconds.
	MaxExecutionTime time.Duration `default:"60s"`
}

// Client owns the *sql.DB pool.
type Client struct {
	db       *sql.DB
	database string
}

// New opens the pool and pings it once.
func New(ctx context.Context, cfg Config) (*Client, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	db := ch.OpenDB(opts)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping %s: %w", opts.Addr[0], err)
	}
	return &Client{db: db, database: cfg.Database}, nil
}

func (cfg *Config) options() (*ch.Options, error) {
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("clickhouse config: %w", err)
	}
	if cfg.Host == "" {
		return nil, errors.New("clickhouse config: host is required")
	}
	settings := ch.Settings{}
	if secs := int(cfg.MaxExecutionTime / time.Second); secs > 0 {
		settings["max_execution_time"] = secs
	}
	if cfg.AsyncInsert {
		settings["async_insert"] = 1
		if cfg.WaitForAsync {
			settings["wait_for_async_insert"] = 1
		} else {
			settings["wait_for_async_insert"] = 0
		}
	}
	protocol := ch.Native
	if cfg.UseHTTP {
		protocol = ch.HTTP
	}
	return &ch.Options{
		Addr:     []string{net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))},
		Protocol: protocol,
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings:    settings,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
		Compression: &ch.Compression{Method: ch.CompressionLZ4},
	}, nil
}

func (c *Client) DB() *sql.DB { return c.db }

// Database is the schema the stores qualify their tables with.
func (c *Client) Database() string { return c.database }

func (c *Client) Health(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// InitSchema runs idempotent DDL in order and stops at the first failure.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
