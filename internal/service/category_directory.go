package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/domain"
)

// SharedCache is the optional cross-replica tier of the category directory.
type SharedCache interface {
	GetCategoryIDs(ctx context.Context, key string) (domain.CategoryIDs, bool, error)
	SetCategoryIDs(ctx context.Context, key string, ids domain.CategoryIDs, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DirectoryConfig configures the category directory cache.
type DirectoryConfig struct {
	CacheKey string
	TTL      time.Duration
}

// DirectoryStats counts where resolutions were served from.
type DirectoryStats struct {
	MemoryHits int64 `json:"memory_hits"`
	SharedHits int64 `json:"shared_hits"`
	StoreLoads int64 `json:"store_loads"`
	Fallbacks  int64 `json:"fallbacks"`
}

// CategoryDirectory resolves the four canonical category names to their
// identifiers with a short-lived two-tier cache in front of storage.
type CategoryDirectory struct {
	store  domain.CategoryStore
	shared SharedCache
	memory *expirable.LRU[string, domain.CategoryIDs]

	key string
	ttl time.Duration
	log *logrus.Logger

	memoryHits atomic.Int64
	sharedHits atomic.Int64
	storeLoads atomic.Int64
	fallbacks  atomic.Int64
}

// NewCategoryDirectory creates a directory over store. shared may be nil.
func NewCategoryDirectory(store domain.CategoryStore, shared SharedCache, config DirectoryConfig, logger *logrus.Logger) *CategoryDirectory {
	if config.CacheKey == "" {
		config.CacheKey = "risk_category_ids:v1"
	}
	if config.TTL <= 0 {
		config.TTL = time.Minute
	}

	return &CategoryDirectory{
		store:  store,
		shared: shared,
		memory: expirable.NewLRU[string, domain.CategoryIDs](8, nil, config.TTL),
		key:    config.CacheKey,
		ttl:    config.TTL,
		log:    logger,
	}
}

// ResolveCategoryIDs returns an identifier for every canonical category.
// Storage failures propagate and leave both cache tiers untouched.
func (d *CategoryDirectory) ResolveCategoryIDs(ctx context.Context) (domain.CategoryIDs, error) {
	if ids, ok := d.memory.Get(d.key); ok {
		d.memoryHits.Add(1)
		return ids.Clone(), nil
	}

	if d.shared != nil {
		ids, ok, err := d.shared.GetCategoryIDs(ctx, d.key)
		switch {
		case err != nil:
			d.log.WithFields(logrus.Fields{
				"cache_key": d.key,
				"error":     err,
			}).Debug("Shared category cache unavailable, reading storage")
		case ok && complete(ids):
			d.sharedHits.Add(1)
			d.memory.Add(d.key, ids)
			return ids.Clone(), nil
		}
	}

	stored, err := d.store.CategoryIDsByName(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving risk category ids: %w", err)
	}
	d.storeLoads.Add(1)

	ids := make(domain.CategoryIDs, len(domain.CanonicalCategories))
	var missing []string
	for _, name := range domain.CanonicalCategories {
		if id, ok := stored[name]; ok {
			ids[name] = id
			continue
		}
		ids[name] = domain.FallbackCategoryIDs[name]
		missing = append(missing, string(name))
	}

	if len(missing) > 0 {
		d.fallbacks.Add(1)
		d.log.WithFields(logrus.Fields{
			"missing_categories": missing,
			"cache_key":          d.key,
		}).Warn("Risk categories missing from reference data, using fallback identifiers")
	}

	d.memory.Add(d.key, ids)
	if d.shared != nil {
		if err := d.shared.SetCategoryIDs(ctx, d.key, ids, d.ttl); err != nil {
			d.log.WithError(err).Debug("Failed to populate shared category cache")
		}
	}

	return ids.Clone(), nil
}

// Invalidate drops the cached mapping from both tiers.
func (d *CategoryDirectory) Invalidate(ctx context.Context) error {
	d.memory.Remove(d.key)
	if d.shared != nil {
		if err := d.shared.Delete(ctx, d.key); err != nil {
			return fmt.Errorf("invalidating shared category cache: %w", err)
		}
	}
	return nil
}

// Stats returns a snapshot of the resolution counters.
func (d *CategoryDirectory) Stats() DirectoryStats {
	return DirectoryStats{
		MemoryHits: d.memoryHits.Load(),
		SharedHits: d.sharedHits.Load(),
		StoreLoads: d.storeLoads.Load(),
		Fallbacks:  d.fallbacks.Load(),
	}
}

// complete reports whether every canonical category has an identifier.
func complete(ids domain.CategoryIDs) bool {
	for _, name := range domain.CanonicalCategories {
		if _, ok := ids[name]; !ok {
			return false
		}
	}
	return true
}
