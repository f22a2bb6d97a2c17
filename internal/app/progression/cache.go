package progression

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/readgarden/readgarden/internal/domain"
)

const progressKey = "account"

// DefaultCacheTTL is how long a cached AccountProgress is served.
const DefaultCacheTTL = 30 * time.Second

// ProgressCache is a short-lived, caller-owned cache of the account record.
// Every write path must call Invalidate.
type ProgressCache struct {
	lru *expirable.LRU[string, domain.AccountProgress]
}

// NewProgressCache creates a cache with the given TTL. ttl <= 0 uses DefaultCacheTTL.
func NewProgressCache(ttl time.Duration) *ProgressCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ProgressCache{lru: expirable.NewLRU[string, domain.AccountProgress](1, nil, ttl)}
}

// Get returns the cached record, if still fresh.
func (c *ProgressCache) Get() (domain.AccountProgress, bool) {
	if c == nil {
		return domain.AccountProgress{}, false
	}
	return c.lru.Get(progressKey)
}

// Put stores a freshly read or written record.
func (c *ProgressCache) Put(p domain.AccountProgress) {
	if c == nil {
		return
	}
	c.lru.Add(progressKey, p)
}

// Invalidate drops the cached record.
func (c *ProgressCache) Invalidate() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
