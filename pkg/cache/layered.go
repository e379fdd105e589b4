package cache

import (
	"context"
	"errors"
	"time"
)

// Layered reads through a process local Store before a shared one. Writes go to
// the shared layer first; locks only live there so replicas agree on them.
type Layered struct {
	local  Store
	shared Store
	// localTTL caps how long a replica may serve a value the shared layer has dropped.
	localTTL time.Duration
}

func NewLayered(local, shared Store, localTTL time.Duration) *Layered {
	if localTTL <= 0 {
		localTTL = time.Minute
	}
	return &Layered{local: local, shared: shared, localTTL: localTTL}
}

func (l *Layered) Get(ctx context.Context, key string) ([]byte, error) {
	if b, err := l.local.Get(ctx, key); err == nil {
		return b, nil
	}
	b, err := l.shared.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = l.local.Set(ctx, key, b, l.localTTL)
	return b, nil
}

func (l *Layered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := l.shared.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	localTTL := l.localTTL
	if ttl > 0 && ttl < localTTL {
		localTTL = ttl
	}
	return l.local.Set(ctx, key, value, localTTL)
}

func (l *Layered) Delete(ctx context.Context, keys ...string) error {
	return errors.Join(l.local.Delete(ctx, keys...), l.shared.Delete(ctx, keys...))
}

func (l *Layered) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.shared.TryLock(ctx, key, ttl)
}

func (l *Layered) Unlock(ctx context.Context, key string) error {
	return l.shared.Unlock(ctx, key)
}

func (l *Layered) Close() error {
	return errors.Join(l.local.Close(), l.shared.Close())
}

var _ Store = (*Layered)(nil)
