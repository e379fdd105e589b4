package logger

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships a flushed digest, typically onto the job queue.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload any) error
}

type CollectorConfig struct {
	Interval time.Duration // flush at least this often
	// Threshold flushes early once this many distinct entries are buffered.
	Threshold int
	Topic     string
	Publisher Publisher
}

// AggregatedLogEntry counts repeats of one message from one call site.
type AggregatedLogEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Caller    string         `json:"caller"`
	Count     int            `json:"count"`
	FirstSeen time.Time      `json:"first_seen"`
	LastSeen  time.Time      `json:"last_seen"`
}

// LogCollector folds repeated entries together and publishes them in batches so a
// failing dependency produces one digest instead of thousands of alerts. Entries are
// keyed by level, caller and message; the fields of the first occurrence are kept.
type LogCollector struct {
	cfg CollectorConfig

	mu      sync.Mutex
	entries map[string]*AggregatedLogEntry

	batches chan []AggregatedLogEntry
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewLogCollector(cfg *CollectorConfig) *LogCollector {
	c := &LogCollector{
		cfg:     *cfg,
		entries: make(map[string]*AggregatedLogEntry),
		batches: make(chan []AggregatedLogEntry, 4),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if c.cfg.Interval <= 0 {
		c.cfg.Interval = 30 * time.Second
	}
	if c.cfg.Threshold <= 0 {
		c.cfg.Threshold = 100
	}
	go c.loop()
	return c
}

func (c *LogCollector) Add(level, msg string, fields map[string]any, caller string) {
	now := time.Now()
	key := level + "|" + caller + "|" + msg

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &AggregatedLogEntry{Level: level, Message: msg, Fields: fields, Caller: caller, FirstSeen: now}
		c.entries[key] = e
	}
	e.Count++
	e.LastSeen = now
	var batch []AggregatedLogEntry
	if len(c.entries) >= c.cfg.Threshold {
		batch = c.takeLocked()
	}
	c.mu.Unlock()

	if batch != nil {
		// never block the logging goroutine; the periodic flush picks up the slack
		select {
		case c.batches <- batch:
		default:
			fmt.Fprintf(os.Stderr, "log collector: dropped digest of %d entries\n", len(batch))
		}
	}
}

// Close flushes what is buffered and waits for the last publish.
func (c *LogCollector) Close() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

func (c *LogCollector) loop() {
	defer close(c.done)
	t := time.NewTicker(c.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case b := <-c.batches:
			c.publish(b)
		case <-t.C:
			c.flush()
		case <-c.stop:
			for {
				select {
				case b := <-c.batches:
					c.publish(b)
				default:
					c.flush()
					return
				}
			}
		}
	}
}

func (c *LogCollector) flush() {
	c.mu.Lock()
	batch := c.takeLocked()
	c.mu.Unlock()
	c.publish(batch)
}

// takeLocked empties the buffer and returns its entries, most repeated first.
func (c *LogCollector) takeLocked() []AggregatedLogEntry {
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.entries = make(map[string]*AggregatedLogEntry)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Caller < out[j].Caller
	})
	return out
}

func (c *LogCollector) publish(batch []AggregatedLogEntry) {
	if len(batch) == 0 || c.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// the logger cannot report its own failure without feeding itself
	if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
		fmt.Fprintf(os.Stderr, "log collector: publish %s: %v\n", c.cfg.Topic, err)
	}
}
