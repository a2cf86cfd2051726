package grpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
	maxRefreshDelay     = 250 * time.Millisecond
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "report_cache_lookups_total",
	Help: "Report cache lookups by report and result (hit, stale, miss, error)",
}, []string{"report", "result"})

// cachedReport is the stored form of a report. StoredAt drives refresh-ahead.
type cachedReport[T any] struct {
	Value    T         `json:"value"`
	StoredAt time.Time `json:"storedAt"`
}

// addTTLJitter spreads expirations by up to ±10% of ttl so entries filled together
// do not expire together. The result never exceeds 110% of ttl.
func addTTLJitter(ttl time.Duration) time.Duration {
	spread := int64(ttl / 10)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(2*spread+1)-spread)
}

// stale reports whether an entry has lived past half its ttl.
func stale(storedAt time.Time, ttl time.Duration, now time.Time) bool {
	return now.Sub(storedAt) > ttl/2
}

func storeReport[T any](c Cacher, key string, value T, ttl time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttlWithJitter := addTTLJitter(ttl)
	entry := cachedReport[T]{Value: value, StoredAt: time.Now().UTC()}
	if err := c.Set(ctx, key, entry, ttlWithJitter); err != nil {
		logger.Warn("failed to store report in cache", zap.String("key", key), zap.Error(err))
		return
	}
	logger.Debug("report cached", zap.String("key", key), zap.Duration("ttl", ttlWithJitter))
}

// refreshAhead recomputes a stale entry off the request path. Concurrent stale hits
// for one key share a single recomputation.
func refreshAhead[T any](c Cacher, sf *singleflight.Group, key string, ttl time.Duration, logger *zap.Logger, fn FetchFunc[T]) {
	go func() {
		time.Sleep(time.Duration(rand.Int63n(int64(maxRefreshDelay))))

		_, _, _ = sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			storeReport(c, key, value, ttl, logger)
			return nil, nil
		})
	}()
}

// FindAndCache serves report from cache when present, recomputing in the background
// once the entry is past half its ttl. Misses are computed once per key across
// concurrent callers and stored asynchronously. Errors are never cached.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	report string,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}

	var cached cachedReport[T]
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		if stale(cached.StoredAt, ttl, time.Now()) {
			cacheLookups.WithLabelValues(report, "stale").Inc()
			refreshAhead(c, sf, key, ttl, logger, fn)
		} else {
			cacheLookups.WithLabelValues(report, "hit").Inc()
		}
		logger.Debug("cache hit", zap.String("key", key))
		return cached.Value, nil

	case errors.Is(err, redis.Nil):
		cacheLookups.WithLabelValues(report, "miss").Inc()
		logger.Debug("cache miss", zap.String("key", key))

	default:
		cacheLookups.WithLabelValues(report, "error").Inc()
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			logger.Error("fetch failed", zap.String("key", key), zap.Error(err))
			return nil, err
		}
		go storeReport(c, key, value, ttl, logger)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}

	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}

	return value, nil
}
