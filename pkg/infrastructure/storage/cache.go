package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/repository"
	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long a classification stays valid
const DefaultTTL = 24 * time.Hour

// CacheConfig holds result cache configuration
type CacheConfig struct {
	TTL time.Duration
	// CacheErrors makes error results cacheable like complete ones
	CacheErrors bool
	// Filter, when set, short-circuits reads of keys never written
	Filter repository.KeyFilter
	Clock  clockwork.Clock
}

// storedEntry is the persisted form of entity.CacheEntry
type storedEntry struct {
	Result    entity.ClassificationResult `json:"result"`
	Timestamp int64                       `json:"timestamp"` // unix milliseconds
}

// ResultCache implements repository.ResultCache over a KVStore
type ResultCache struct {
	store       repository.KVStore
	filter      repository.KeyFilter
	clock       clockwork.Clock
	ttl         time.Duration
	cacheErrors bool
}

// NewResultCache creates a result cache backed by store
func NewResultCache(store repository.KVStore, config CacheConfig) *ResultCache {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &ResultCache{
		store:       store,
		filter:      config.Filter,
		clock:       config.Clock,
		ttl:         config.TTL,
		cacheErrors: config.CacheErrors,
	}
}

// Cacheable reports whether Put would store result
func (c *ResultCache) Cacheable(result entity.ClassificationResult) bool {
	switch result.Status {
	case entity.StatusInProgress:
		return false
	case entity.StatusError:
		return c.cacheErrors
	default:
		return true
	}
}

// Get returns the cached result for domain. Expired or unreadable entries
// are evicted by the read that finds them.
func (c *ResultCache) Get(ctx context.Context, domain entity.Domain) (entity.ClassificationResult, bool, error) {
	key := domain.String()
	if c.filter != nil && !c.filter.Contains(key) {
		return entity.ClassificationResult{}, false, nil
	}

	b, err := c.store.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return entity.ClassificationResult{}, false, nil
	}
	if err != nil {
		return entity.ClassificationResult{}, false, fmt.Errorf("read cache entry %s: %w", domain, err)
	}

	var rec storedEntry
	if err := json.Unmarshal(b, &rec); err != nil || !rec.Result.IsFinal() {
		return entity.ClassificationResult{}, false, c.evict(ctx, domain)
	}

	entry := entity.CacheEntry{Result: rec.Result, Timestamp: time.UnixMilli(rec.Timestamp)}
	if c.clock.Since(entry.Timestamp) >= c.ttl {
		return entity.ClassificationResult{}, false, c.evict(ctx, domain)
	}

	return entry.Result, true, nil
}

// Put stores result for domain, replacing any previous entry. In-progress
// results are never stored.
func (c *ResultCache) Put(ctx context.Context, domain entity.Domain, result entity.ClassificationResult) error {
	if !c.Cacheable(result) {
		return nil
	}

	b, err := json.Marshal(storedEntry{
		Result:    result,
		Timestamp: c.clock.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", domain, err)
	}

	if err := c.store.Set(ctx, domain.String(), b); err != nil {
		return fmt.Errorf("write cache entry %s: %w", domain, err)
	}
	if c.filter != nil {
		c.filter.Add(domain.String())
	}
	return nil
}

// Warm seeds the key filter with every key already in the store
func (c *ResultCache) Warm(ctx context.Context) (int, error) {
	if c.filter == nil {
		return 0, nil
	}
	n := 0
	err := c.store.ForEachKey(ctx, func(key string) error {
		c.filter.Add(key)
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("warm cache filter: %w", err)
	}
	return n, nil
}

func (c *ResultCache) evict(ctx context.Context, domain entity.Domain) error {
	if err := c.store.Delete(ctx, domain.String()); err != nil {
		return fmt.Errorf("evict cache entry %s: %w", domain, err)
	}
	return nil
}
