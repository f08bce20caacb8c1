// Package coordinator sits between callers and the remote data source: reads
// go through the local cache with a TTL and fall back to stale data when the
// remote fails; progress writes made offline are queued and replayed later.
package coordinator

import (
	"context"
	"time"

	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/network"
	"github.com/vytor/lingoflash/internal/remote"
	"github.com/vytor/lingoflash/internal/repository"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched query stays fresh.
const DefaultTTL = 24 * time.Hour

// Source tells where the data of a read came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
	// SourceStale means the remote failed and expired cached data was served.
	SourceStale Source = "stale"
)

// worse returns the less trustworthy of two sources.
func worse(a, b Source) Source {
	rank := map[Source]int{SourceCache: 0, SourceRemote: 0, SourceStale: 1}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Result is the outcome of a cached read.
type Result[T any] struct {
	Data   []T
	Source Source
	// Err is the remote failure suppressed by a stale fallback.
	Err error
}

type Coordinator struct {
	store  repository.CacheStore
	remote remote.DataSource
	net    network.Reachability
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group
}

type Option func(*Coordinator)

func WithTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests and replays.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func New(store repository.CacheStore, src remote.DataSource, net network.Reachability, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		remote: src,
		net:    net,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) TTL() time.Duration { return c.ttl }

// Online reports the current reachability signal.
func (c *Coordinator) Online() bool { return c.net.Online() }

// ClearCache wipes one local store, or all of them for models.KindAll,
// together with the matching freshness records.
func (c *Coordinator) ClearCache(ctx context.Context, kind models.EntityKind) error {
	logger.FromContext(ctx).WithPrefix("coordinator").Info("clearing cache: kind=%s", kind)
	return c.store.Clear(ctx, kind)
}

// CacheStats reports the number of cached rows per kind.
func (c *Coordinator) CacheStats(ctx context.Context) (map[models.EntityKind]int, error) {
	return c.store.Stats(ctx)
}
