package coordinator

import (
	"context"

	"github.com/vytor/lingoflash/internal/logger"
)

// FetchWithCache serves key from the cache through local while it is fresh
// and non-empty, otherwise from the remote through fetch, storing what it
// fetched with persist. When the remote fails, any cached records are served
// as stale and the failure is kept in Result.Err; with nothing cached the
// remote error is returned.
//
// Local store failures count as cache misses and never fail the read on
// their own. Concurrent remote fetches of the same key are collapsed.
func FetchWithCache[T any](
	ctx context.Context,
	c *Coordinator,
	key string,
	local func(context.Context) ([]T, error),
	fetch func(context.Context) ([]T, error),
	persist func(context.Context, []T) error,
) (Result[T], error) {
	log := logger.FromContext(ctx).WithPrefix("coordinator").WithField("key", key)

	if c.isFresh(ctx, key) {
		cached, err := local(ctx)
		switch {
		case err != nil:
			log.Warn("cache read failed, treating as miss: %v", err)
		case len(cached) > 0:
			log.Debug("cache hit: %d records", len(cached))
			return Result[T]{Data: cached, Source: SourceCache}, nil
		default:
			log.Debug("fresh key but no cached records")
		}
	}

	v, remoteErr, shared := c.group.Do(key, func() (interface{}, error) {
		fetched, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := persist(ctx, fetched); err != nil {
			log.Warn("failed to persist fetched records: %v", err)
			return fetched, nil
		}
		if err := c.store.SetFreshness(ctx, key, c.now()); err != nil {
			log.Warn("failed to record freshness: %v", err)
		}
		return fetched, nil
	})
	if remoteErr == nil {
		fetched, _ := v.([]T)
		if fetched == nil {
			fetched = []T{}
		}
		log.Debug("fetched %d records from remote (shared=%t)", len(fetched), shared)
		return Result[T]{Data: fetched, Source: SourceRemote}, nil
	}

	log.Warn("remote fetch failed, trying cache: %v", remoteErr)
	cached, err := local(ctx)
	if err != nil {
		log.Error("cache fallback failed: %v", err)
		return Result[T]{}, remoteErr
	}
	if len(cached) == 0 {
		return Result[T]{}, remoteErr
	}
	log.Info("serving %d stale records", len(cached))
	return Result[T]{Data: cached, Source: SourceStale, Err: remoteErr}, nil
}

func (c *Coordinator) isFresh(ctx context.Context, key string) bool {
	f, err := c.store.GetFreshness(ctx, key)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("coordinator").Warn("freshness lookup failed for %s: %v", key, err)
		return false
	}
	return f != nil && f.IsFresh(c.now(), c.ttl)
}
