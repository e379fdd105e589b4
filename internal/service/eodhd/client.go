// Package eodhd reads end-of-day bars, intraday bars and fundamentals from the EODHD API.
package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"FinScope/internal/domain/models"
	xhttp "FinScope/pkg/http"
	applogger "FinScope/pkg/logger"
)

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5
)

// Client is a rate limited EODHD API client.
type Client struct {
	baseURL  string
	apiKey   string
	exchange string
	timeout  time.Duration
	http     *xhttp.Client
	limiter  *rate.Limiter
	logger   *applogger.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps requests per second with the given burst.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithExchange sets the suffix appended to bare tickers ("US" turns AAPL into AAPL.US).
func WithExchange(code string) ClientOption {
	return func(c *Client) { c.exchange = code }
}

func WithLogger(lgr *applogger.Logger) ClientOption {
	return func(c *Client) { c.logger = lgr }
}

// NewClient creates a new EODHD client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		exchange: "US",
		timeout:  DefaultTimeout,
		limiter:  rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(c.timeout), xhttp.WithRetry(2, 500*time.Millisecond))
	return c
}

// APIError is a non-2xx answer or transport failure for one endpoint.
type APIError struct {
	Endpoint string
	Err      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eodhd %s: %v", e.Endpoint, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

func (c *Client) get(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("eodhd rate limiter: %w", err)
	}
	q := url.Values{"api_token": {c.apiKey}, "fmt": {"json"}}
	for k, v := range params {
		q[k] = v
	}
	if c.logger != nil {
		c.logger.Debug("eodhd request", applogger.String("path", path))
	}
	if err := c.http.GetJSON(ctx, c.baseURL+path, q, dest); err != nil {
		if xhttp.IsStatus(err, http.StatusNotFound) {
			err = fmt.Errorf("%w: %v", models.ErrNotFound, err)
		}
		return &APIError{Endpoint: path, Err: err}
	}
	return nil
}

// Ticker qualifies a bare symbol with the configured exchange.
func (c *Client) Ticker(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(symbol, ".") || c.exchange == "" {
		return symbol
	}
	return symbol + "." + c.exchange
}

// GetEOD returns daily ("d") or weekly ("w") bars between from and to, oldest first.
func (c *Client) GetEOD(ctx context.Context, symbol, period string, from, to time.Time) ([]EODBar, error) {
	params := map[string][]string{
		"period": {period},
		"order":  {"a"},
	}
	if !from.IsZero() {
		params["from"] = []string{from.Format("2006-01-02")}
	}
	if !to.IsZero() {
		params["to"] = []string{to.Format("2006-01-02")}
	}
	var out []EODBar
	if err := c.get(ctx, "/eod/"+c.Ticker(symbol), params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetIntraday returns hourly bars between from and to.
func (c *Client) GetIntraday(ctx context.Context, symbol string, from, to time.Time) ([]IntradayBar, error) {
	params := map[string][]string{"interval": {"1h"}}
	if !from.IsZero() {
		params["from"] = []string{strconv.FormatInt(from.Unix(), 10)}
	}
	if !to.IsZero() {
		params["to"] = []string{strconv.FormatInt(to.Unix(), 10)}
	}
	var out []IntradayBar
	if err := c.get(ctx, "/intraday/"+c.Ticker(symbol), params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFundamentals returns the statements, earnings and share counts of a symbol.
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*FundamentalsResponse, error) {
	var out FundamentalsResponse
	if err := c.get(ctx, "/fundamentals/"+c.Ticker(symbol), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
