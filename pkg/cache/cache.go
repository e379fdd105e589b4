// Package cache stores serialized analysis reports and fundamentals, in process,
// in Redis, or both.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMiss = errors.New("cache: miss")

// Store keeps opaque byte values with a TTL. Locks are short lived markers used
// to let one caller compute a value while others wait for it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// Key joins parts with ':' after formatting each with %v.
func Key(parts ...any) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// GetJSON reads key and decodes it into a T. Undecodable values count as a miss.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var out T
	b, err := s.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrMiss, key, err)
	}
	return out, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return s.Set(ctx, key, b, ttl)
}
