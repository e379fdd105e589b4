package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// OutboundRequest describes one call to an upstream JSON API.
type OutboundRequest struct {
	Method string
	URL    string
	Query  url.Values
	Header map[string]string
	// Body is sent as-is when []byte or string, otherwise JSON-encoded.
	Body any
}

// StatusError is a non-2xx answer from an upstream.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the same request may succeed later.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// IsStatus reports whether err carries the given upstream status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

type ClientOption func(*Client)

// Client calls upstream JSON APIs, retrying transport failures, 429s and 5xx answers.
type Client struct {
	hc        *http.Client
	timeout   time.Duration
	attempts  int
	backoff   time.Duration
	userAgent string
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{timeout: 30 * time.Second, attempts: 1, backoff: 200 * time.Millisecond, userAgent: "finscope/1"}
	for _, opt := range opts {
		opt(c)
	}
	if c.hc == nil {
		c.hc = &http.Client{}
	}
	c.hc.Timeout = c.timeout
	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry allows retries extra attempts, waiting backoff, 2*backoff, ... in between.
func WithRetry(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if retries > 0 {
			c.attempts = retries + 1
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithHTTPClient swaps the underlying client, e.g. for a custom transport in tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.hc = hc }
}

// GetJSON issues a GET and decodes the answer into dest.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, dest any) error {
	return c.DoJSON(ctx, OutboundRequest{Method: http.MethodGet, URL: rawURL, Query: query}, dest)
}

// PostJSON posts body as JSON and decodes the answer into dest.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, dest any) error {
	return c.DoJSON(ctx, OutboundRequest{Method: http.MethodPost, URL: rawURL, Body: body}, dest)
}

// DoJSON sends req and decodes a 2xx answer into dest. dest may be nil, *[]byte or
// *json.RawMessage to skip decoding.
func (c *Client) DoJSON(ctx context.Context, req OutboundRequest, dest any) error {
	payload, err := encodeBody(req.Body)
	if err != nil {
		return err
	}

	var last error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			wait := c.backoff << uint(attempt-2)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		body, err := c.once(ctx, req, payload)
		if err == nil {
			return decodeInto(body, dest)
		}
		last = err
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return last
}

func (c *Client) once(ctx context.Context, req OutboundRequest, payload []byte) ([]byte, error) {
	u := req.URL
	if len(req.Query) > 0 {
		parsed, err := url.Parse(req.URL)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		q := parsed.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		parsed.RawQuery = q.Encode()
		u = parsed.String()
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		hr.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Header {
		hr.Header.Set(k, v)
	}

	resp, err := c.hc.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, hr.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: excerpt(body)}
	}
	return body, nil
}

func encodeBody(b any) ([]byte, error) {
	switch v := b.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return data, nil
}

func decodeInto(body []byte, dest any) error {
	switch d := dest.(type) {
	case nil:
		return nil
	case *[]byte:
		*d = body
		return nil
	case *json.RawMessage:
		*d = append((*d)[:0], body...)
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func excerpt(b []byte) string {
	const max = 256
	b = bytes.TrimSpace(b)
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
