// Package cache decorates market data providers with a cache.Store.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	pkgcache "FinScope/pkg/cache"
	applogger "FinScope/pkg/logger"
)

// FundamentalsCache serves reports from the store before asking the provider.
// Reports change once a quarter so the TTL is long; a failing store only costs a
// provider call.
type FundamentalsCache struct {
	next   domrepo.FundamentalsProvider
	store  pkgcache.Store
	ttl    time.Duration
	logger *applogger.Logger
}

func NewFundamentalsCache(next domrepo.FundamentalsProvider, store pkgcache.Store, ttl time.Duration, lgr *applogger.Logger) *FundamentalsCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if lgr == nil {
		lgr = applogger.Nop()
	}
	return &FundamentalsCache{next: next, store: store, ttl: ttl, logger: lgr}
}

func (c *FundamentalsCache) GetFundamentals(ctx context.Context, symbol string) ([]models.FundamentalReport, error) {
	key := pkgcache.Key("fundamentals", strings.ToUpper(symbol))
	reports, err := pkgcache.GetJSON[[]models.FundamentalReport](ctx, c.store, key)
	switch {
	case err == nil:
		return reports, nil
	case !errors.Is(err, pkgcache.ErrMiss):
		c.logger.Warn("fundamentals cache read failed", applogger.String("symbol", symbol), applogger.Error(err))
	}

	reports, err = c.next.GetFundamentals(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := pkgcache.SetJSON(ctx, c.store, key, reports, c.ttl); err != nil {
		c.logger.Warn("fundamentals cache write failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
	return reports, nil
}

var _ domrepo.FundamentalsProvider = (*FundamentalsCache)(nil)
