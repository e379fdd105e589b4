package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with typed fields and an optional error collector.
type Logger struct {
	zl zerolog.Logger

	mu        *sync.RWMutex
	collector **LogCollector
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr or a file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().CallerWithSkipFrameCount(4).Logger()
	return wrap(zl), nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger { return wrap(zerolog.Nop()) }

func wrap(zl zerolog.Logger) *Logger {
	var c *LogCollector
	return &Logger{zl: zl, mu: &sync.RWMutex{}, collector: &c}
}

// With returns a child logger carrying fields on every entry. It shares the collector.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.context(ctx)
	}
	return &Logger{zl: ctx.Logger(), mu: l.mu, collector: l.collector}
}

func (l *Logger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }

// Error also feeds the collector when one is attached.
func (l *Logger) Error(msg string, fields ...Field) {
	emit(l.zl.Error(), msg, fields)

	l.mu.RLock()
	c := *l.collector
	l.mu.RUnlock()
	if c != nil {
		c.Add("error", msg, fieldMap(fields), callerOf(1))
	}
}

// AddCollector attaches an error collector, replacing and closing any previous one.
func (l *Logger) AddCollector(cfg *CollectorConfig) {
	next := NewLogCollector(cfg)
	l.mu.Lock()
	prev := *l.collector
	*l.collector = next
	l.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

// RemoveCollector detaches the collector after flushing what it holds.
func (l *Logger) RemoveCollector() {
	l.mu.Lock()
	prev := *l.collector
	*l.collector = nil
	l.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

func emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f.event(e)
	}
	e.Msg(msg)
}

// callerOf returns "pkg/file.go:line" relative to the module root.
func callerOf(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	cut := -1
	for _, root := range []string{"/cmd/", "/internal/", "/pkg/"} {
		if i := strings.LastIndex(file, root); i >= 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	if cut >= 0 {
		file = file[cut+1:]
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// Field is one structured key/value pair.
type Field struct {
	Key   string
	Value any
}

func (f Field) event(e *zerolog.Event) {
	switch v := f.Value.(type) {
	case string:
		e.Str(f.Key, v)
	case int:
		e.Int(f.Key, v)
	case int64:
		e.Int64(f.Key, v)
	case float64:
		e.Float64(f.Key, v)
	case bool:
		e.Bool(f.Key, v)
	case time.Duration:
		e.Dur(f.Key, v)
	case time.Time:
		e.Time(f.Key, v)
	case []string:
		e.Strs(f.Key, v)
	case error:
		e.AnErr(f.Key, v)
	default:
		e.Interface(f.Key, v)
	}
}

func (f Field) context(c zerolog.Context) zerolog.Context {
	switch v := f.Value.(type) {
	case string:
		return c.Str(f.Key, v)
	case int:
		return c.Int(f.Key, v)
	case error:
		return c.AnErr(f.Key, v)
	}
	return c.Interface(f.Key, f.Value)
}

func fieldMap(fields []Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			m[f.Key] = err.Error()
			continue
		}
		m[f.Key] = f.Value
	}
	return m
}

func String(key, value string) Field             { return Field{key, value} }
func Int(key string, value int) Field            { return Field{key, value} }
func Float64(key string, value float64) Field    { return Field{key, value} }
func Bool(key string, value bool) Field          { return Field{key, value} }
func Duration(key string, d time.Duration) Field { return Field{key, d} }
func Time(key string, t time.Time) Field         { return Field{key, t} }
func Strings(key string, value []string) Field   { return Field{key, value} }

// Error records err under "error". A nil error is logged as null.
func Error(err error) Field {
	if err == nil {
		return Field{"error", nil}
	}
	return Field{"error", err}
}
