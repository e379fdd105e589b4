package kafka

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/segmentio/kafka-go"
)

// Delivery is one fetched message on its way to a handler. Hooks may rewrite Data;
// Message keeps the raw record for headers and offsets.
type Delivery struct {
	Topic   string
	Message kafka.Message
	Data    []byte
}

// ConsumerHook observes and gates message handling. An error from Before skips the
// handler and counts as a final failure: no retry, straight to Failed and the DLQ.
type ConsumerHook interface {
	Before(ctx context.Context, d *Delivery) (context.Context, error)
	After(ctx context.Context, d *Delivery, err error)
	Failed(ctx context.Context, d *Delivery, err error)
}

type nopHook struct{}

func (nopHook) Before(ctx context.Context, _ *Delivery) (context.Context, error) { return ctx, nil }
func (nopHook) After(context.Context, *Delivery, error)                         {}
func (nopHook) Failed(context.Context, *Delivery, error)                        {}

// Rejection is the error a hook returns to refuse a message, or the consumer's
// wrapper for a panic ("ERR_PANIC").
type Rejection struct {
	Code string
	Err  error
}

func (r *Rejection) Error() string {
	if r.Err == nil {
		return "rejected: " + r.Code
	}
	return "rejected: " + r.Code + ": " + r.Err.Error()
}

func (r *Rejection) Unwrap() error { return r.Err }

// HookFunc builds a ConsumerHook from whichever stages are set.
type HookFunc struct {
	OnBefore func(ctx context.Context, d *Delivery) (context.Context, error)
	OnAfter  func(ctx context.Context, d *Delivery, err error)
	OnFailed func(ctx context.Context, d *Delivery, err error)
}

func (f HookFunc) Before(ctx context.Context, d *Delivery) (context.Context, error) {
	if f.OnBefore == nil {
		return ctx, nil
	}
	return f.OnBefore(ctx, d)
}

func (f HookFunc) After(ctx context.Context, d *Delivery, err error) {
	if f.OnAfter != nil {
		f.OnAfter(ctx, d, err)
	}
}

func (f HookFunc) Failed(ctx context.Context, d *Delivery, err error) {
	if f.OnFailed != nil {
		f.OnFailed(ctx, d, err)
	}
}

// Chain runs Before in order and After in reverse, like nested middleware. Before
// stops at the first error. A panicking hook becomes an ERR_PANIC Rejection in
// Before and is swallowed in After and Failed.
type Chain []ConsumerHook

func NewChain(hooks ...ConsumerHook) Chain {
	return slices.DeleteFunc(slices.Clone(hooks), func(h ConsumerHook) bool { return h == nil })
}

func (c Chain) Before(ctx context.Context, d *Delivery) (context.Context, error) {
	for _, h := range c {
		next, err := before(h, ctx, d)
		if err != nil {
			return ctx, err
		}
		ctx = next
	}
	return ctx, nil
}

func (c Chain) After(ctx context.Context, d *Delivery, err error) {
	for _, h := range slices.Backward(c) {
		quiet(func() { h.After(ctx, d, err) })
	}
}

func (c Chain) Failed(ctx context.Context, d *Delivery, err error) {
	for _, h := range c {
		quiet(func() { h.Failed(ctx, d, err) })
	}
}

func before(h ConsumerHook, ctx context.Context, d *Delivery) (_ context.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Rejection{Code: "ERR_PANIC", Err: fmt.Errorf("hook: %v", r)}
		}
	}()
	return h.Before(ctx, d)
}

func quiet(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

type ctxKey int

const (
	startKey ctxKey = iota
	traceKey
)

func WithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startKey, t)
}

// StartTime returns the stamp left by WithStartTime.
func StartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startKey).(time.Time)
	return t, ok
}

// WithTraceID is a no-op for an empty id.
func WithTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, traceKey, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey).(string)
	return id
}

// TraceIDOf prefers a non-empty trace_id header and otherwise uses the message key,
// which for analysis requests is the ticker.
func TraceIDOf(m kafka.Message) string {
	i := slices.IndexFunc(m.Headers, func(h kafka.Header) bool {
		return h.Key == "trace_id" && len(h.Value) > 0
	})
	if i >= 0 {
		return string(m.Headers[i].Value)
	}
	return string(m.Key)
}
