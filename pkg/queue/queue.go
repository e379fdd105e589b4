package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotRunning  = errors.New("queue: not running")
	ErrQueueFull   = errors.New("queue: full")
	ErrUnknownType = errors.New("queue: no job registered for type")
)

// Publisher accepts work for asynchronous handling. The log collector and the HTTP
// handlers depend on this rather than on a concrete queue.
type Publisher interface {
	PublishMessage(ctx context.Context, msgType string, payload any) error
}

// Job handles every message of one type.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Config sizes the worker pool and the retry policy.
type Config struct {
	Workers int `default:"1"`
	// MaxPending caps the pending list; Enqueue fails with ErrQueueFull beyond it. Zero is unbounded.
	MaxPending int
	RetryLimit int `default:"3"`
	// RetryDelay doubles per attempt.
	RetryDelay  time.Duration `default:"5s"`
	PollTimeout time.Duration `default:"1s"`
	Prefix      string        `default:"finscope:jobs"`
}

// envelope is the stored form of one message.
type envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// Decode unmarshals a job payload into T.
func Decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, errors.New("queue: empty payload")
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("queue: decode %T: %w", v, err)
	}
	return v, nil
}

// retryDelay returns the wait before the given attempt (1-based) is retried.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 10 {
		attempt = 10
	}
	return base << uint(attempt-1)
}
