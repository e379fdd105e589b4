package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

type MemoryConfig struct {
	// MaxBytes bounds the summed size of cached values.
	MaxBytes int64
	// DefaultTTL applies when Set is called with ttl <= 0.
	DefaultTTL time.Duration
}

// Memory is a size bounded in-process Store. Values are admitted by ristretto's
// TinyLFU policy, so under pressure rarely used reports are dropped first.
type Memory struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration

	mu    sync.Mutex
	locks map[string]time.Time
}

func NewMemory(cfg MemoryConfig) (*Memory, error) {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 << 20
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// ten counters per expected entry, assuming ~4KB reports
		NumCounters:        max(cfg.MaxBytes/4096*10, 1000),
		MaxCost:            cfg.MaxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{c: c, ttl: cfg.DefaultTTL, locks: make(map[string]time.Time)}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := m.c.Get(key); ok {
		return v, nil
	}
	return nil, ErrMiss
}

// Set is visible to the next Get once it returns. Values larger than the whole
// budget are silently not stored.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.ttl
	}
	cp := append([]byte(nil), value...)
	m.c.SetWithTTL(key, cp, int64(len(cp))+1, ttl)
	m.c.Wait()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Del(k)
	}
	return nil
}

func (m *Memory) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if until, held := m.locks[key]; held && now.Before(until) {
		return false, nil
	}
	m.locks[key] = now.Add(ttl)
	return true, nil
}

func (m *Memory) Unlock(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.locks, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	m.c.Close()
	return nil
}

var _ Store = (*Memory)(nil)
