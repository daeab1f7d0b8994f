package redis

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
)

const pathwayKeyPrefix = "pathway:"

// PathwayCache stores pathway documents by id. It satisfies the
// application service's Cache port.
type PathwayCache struct {
	cache Cache
	ttl   atomic.Int64
}

// NewPathwayCache creates a PathwayCache; ttl 0 uses the cache default.
func NewPathwayCache(cache Cache, ttl time.Duration) *PathwayCache {
	p := &PathwayCache{cache: cache}
	p.ttl.Store(int64(ttl))
	return p
}

// ApplyTTL changes the expiry of entries written from now on. When the new
// TTL is shorter than the previous one every cached pathway is flushed, so no
// entry outlives it; the number of removed keys is returned.
func (p *PathwayCache) ApplyTTL(ctx context.Context, ttl time.Duration) (int64, error) {
	old := time.Duration(p.ttl.Swap(int64(ttl)))
	if ttl <= 0 || (old > 0 && ttl >= old) {
		return 0, nil
	}
	return p.Flush(ctx)
}

func (p *PathwayCache) TTL() time.Duration { return time.Duration(p.ttl.Load()) }

// Get returns nil, nil on a miss.
func (p *PathwayCache) Get(ctx context.Context, id string) (*chem.PathwayDTO, error) {
	var doc chem.PathwayDTO
	err := p.cache.Get(ctx, pathwayKeyPrefix+id, &doc)
	if err == ErrCacheMiss {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (p *PathwayCache) Set(ctx context.Context, doc *chem.PathwayDTO) error {
	if doc == nil || doc.ID == "" {
		return errors.InvalidParam("cannot cache a pathway without id")
	}
	return p.cache.Set(ctx, pathwayKeyPrefix+doc.ID, doc, p.TTL())
}

func (p *PathwayCache) Invalidate(ctx context.Context, id string) error {
	return p.cache.Delete(ctx, pathwayKeyPrefix+id)
}

// Flush drops every cached pathway and returns the number of keys removed.
func (p *PathwayCache) Flush(ctx context.Context) (int64, error) {
	return p.cache.DeleteByPrefix(ctx, pathwayKeyPrefix)
}
