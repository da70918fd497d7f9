package store

import (
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
	"github.com/NERVsystems/osmdelta/pkg/monitoring"
)

const defaultCacheSize = 4096

// CachedStore fronts a slower Store with an LRU of resolved entities.
// Lookups that miss the backing store are not cached.
type CachedStore struct {
	backing Store
	cache   *lru.Cache[entity.Key, entity.Entity]
	logger  *slog.Logger
}

// NewCachedStore wraps backing with an LRU holding up to size entities. A
// non-positive size selects the default.
func NewCachedStore(backing Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[entity.Key, entity.Entity](size)
	if err != nil {
		return nil, fmt.Errorf("create entity cache: %w", err)
	}
	return &CachedStore{
		backing: backing,
		cache:   cache,
		logger:  slog.Default().With("component", "store_cache"),
	}, nil
}

// Entity returns the entity for key, consulting the cache first
func (c *CachedStore) Entity(key entity.Key) (entity.Entity, error) {
	if e, ok := c.cache.Get(key); ok {
		monitoring.RecordStoreLookup(monitoring.LookupHit)
		return e, nil
	}

	e, err := c.backing.Entity(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			monitoring.RecordStoreLookup(monitoring.LookupNotFound)
		}
		return nil, err
	}

	monitoring.RecordStoreLookup(monitoring.LookupMiss)
	c.logger.Debug("entity cache miss", "key", key.String())
	c.cache.Add(key, e)
	monitoring.UpdateStoreCacheSize(c.cache.Len())
	return e, nil
}

// Bounds delegates to the backing store
func (c *CachedStore) Bounds() geo.BoundingBox {
	return c.backing.Bounds()
}

// Len returns the number of cached entities
func (c *CachedStore) Len() int {
	return c.cache.Len()
}

// Purge drops every cached entity
func (c *CachedStore) Purge() {
	c.cache.Purge()
	monitoring.UpdateStoreCacheSize(0)
}
