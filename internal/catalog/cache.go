package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/redisx"
)

// KV is the slice of the cache store the catalog needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, val string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Cache holds the category list under an explicit key with explicit
// invalidation. Cache errors are treated as misses; the DB stays the
// source of truth.
type Cache struct {
	KV  KV
	TTL time.Duration
}

func NewCache(kv KV) *Cache {
	return &Cache{KV: kv, TTL: redisx.TTLCategories}
}

func (c *Cache) GetCategories(ctx context.Context) ([]Category, bool) {
	s, ok, err := c.KV.Get(ctx, redisx.KeyCategories)
	if err != nil || !ok {
		return nil, false
	}
	var cats []Category
	if err := json.Unmarshal([]byte(s), &cats); err != nil {
		return nil, false
	}
	return cats, true
}

func (c *Cache) SetCategories(ctx context.Context, cats []Category) {
	b, err := json.Marshal(cats)
	if err != nil {
		return
	}
	_ = c.KV.Set(ctx, redisx.KeyCategories, string(b), c.TTL)
}

func (c *Cache) Invalidate(ctx context.Context) {
	_ = c.KV.Del(ctx, redisx.KeyCategories)
}
