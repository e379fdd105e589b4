package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quote struct {
	Symbol string  `json:"symbol"`
	Close  float64 `json:"close"`
}

func newMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := NewMemory(MemoryConfig{MaxBytes: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMemoryJSONRoundTrip(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, m, "q:AAPL", quote{Symbol: "AAPL", Close: 190.5}, time.Minute))
	got, err := GetJSON[quote](ctx, m, "q:AAPL")
	require.NoError(t, err)
	assert.Equal(t, quote{Symbol: "AAPL", Close: 190.5}, got)

	_, err = GetJSON[quote](ctx, m, "q:MSFT")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "q:BAD", []byte("not json"), time.Minute))
	_, err = GetJSON[quote](ctx, m, "q:BAD")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Delete(ctx, "q:AAPL"))
	_, err = m.Get(ctx, "q:AAPL")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCopiesValues(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	buf := []byte("190.5")
	require.NoError(t, m.Set(ctx, "px", buf, time.Minute))
	buf[0] = 'X'

	got, err := m.Get(ctx, "px")
	require.NoError(t, err)
	assert.Equal(t, "190.5", string(got))
}

func TestMemoryExpiry(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, err := m.Get(ctx, "k")
		return errors.Is(err, ErrMiss)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryLock(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	ok, err := m.TryLock(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = m.TryLock(ctx, "lock:a", time.Minute)
	assert.False(t, ok)

	require.NoError(t, m.Unlock(ctx, "lock:a"))
	ok, _ = m.TryLock(ctx, "lock:a", time.Minute)
	assert.True(t, ok)

	ok, _ = m.TryLock(ctx, "lock:b", time.Millisecond)
	require.True(t, ok)
	time.Sleep(5 * time.Millisecond)
	ok, _ = m.TryLock(ctx, "lock:b", time.Minute)
	assert.True(t, ok, "expired lock is free again")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "analysis:AAPL:1d:300", Key("analysis", "AAPL", "1d", 300))
	assert.Equal(t, Key("a", 0.5), Key("a", 0.5))
	assert.NotEqual(t, Key("analysis", "AAPL"), Key("analysis", "MSFT"))
	assert.Equal(t, "", Key())
}

func TestLayeredReadsThroughAndShares(t *testing.T) {
	local, shared := newMemory(t), newMemory(t)
	l := NewLayered(local, shared, time.Minute)
	ctx := context.Background()

	require.NoError(t, shared.Set(ctx, "report:1", []byte("r1"), time.Minute))
	got, err := l.Get(ctx, "report:1")
	require.NoError(t, err)
	assert.Equal(t, "r1", string(got))
	got, err = local.Get(ctx, "report:1")
	require.NoError(t, err, "promoted to the local layer")
	assert.Equal(t, "r1", string(got))

	require.NoError(t, l.Set(ctx, "report:2", []byte("r2"), time.Minute))
	_, err = shared.Get(ctx, "report:2")
	assert.NoError(t, err)

	ok, err := l.TryLock(ctx, "lock:x", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	ok, _ = shared.TryLock(ctx, "lock:x", time.Minute)
	assert.False(t, ok, "locks live in the shared layer")

	require.NoError(t, l.Delete(ctx, "report:1"))
	_, err = l.Get(ctx, "report:1")
	assert.ErrorIs(t, err, ErrMiss)
}
