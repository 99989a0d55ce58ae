package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/redis/go-redis/v9"
)

// CatalogSource is the authoritative catalog, normally the upstream API client.
type CatalogSource interface {
	GetService(ctx context.Context, tenantID, id string) (model.Service, error)
	GetOutlet(ctx context.Context, tenantID, id string) (model.Outlet, error)
	GetStaff(ctx context.Context, tenantID, id string) (model.StaffSummary, error)
	GetTenant(ctx context.Context, tenantID string) (model.Tenant, error)
}

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CatalogCache is a read-through Redis cache in front of a CatalogSource. Redis failures
// are logged and bypassed; only source failures reach the caller.
type CatalogCache struct {
	rdb    Store
	src    CatalogSource
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCatalogCache(rdb Store, src CatalogSource, ttl time.Duration, logger *slog.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{rdb: rdb, src: src, ttl: ttl, prefix: "availability:catalog:", logger: logger}
}

func (c *CatalogCache) GetService(ctx context.Context, tenantID, id string) (model.Service, error) {
	return readThrough(ctx, c, tenantID+":service:"+id, func() (model.Service, error) {
		return c.src.GetService(ctx, tenantID, id)
	})
}

func (c *CatalogCache) GetOutlet(ctx context.Context, tenantID, id string) (model.Outlet, error) {
	return readThrough(ctx, c, tenantID+":outlet:"+id, func() (model.Outlet, error) {
		return c.src.GetOutlet(ctx, tenantID, id)
	})
}

func (c *CatalogCache) GetStaff(ctx context.Context, tenantID, id string) (model.StaffSummary, error) {
	return readThrough(ctx, c, tenantID+":staff:"+id, func() (model.StaffSummary, error) {
		return c.src.GetStaff(ctx, tenantID, id)
	})
}

func (c *CatalogCache) GetTenant(ctx context.Context, tenantID string) (model.Tenant, error) {
	return readThrough(ctx, c, tenantID+":tenant", func() (model.Tenant, error) {
		return c.src.GetTenant(ctx, tenantID)
	})
}

func readThrough[T any](ctx context.Context, c *CatalogCache, key string, load func() (T, error)) (T, error) {
	key = c.prefix + key
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal(raw, &v); jerr == nil {
			return v, nil
		}
		c.logger.Warn("catalog cache entry unreadable", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("catalog cache get failed", "key", key, "err", err)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if b, jerr := json.Marshal(v); jerr == nil {
		if serr := c.rdb.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			c.logger.Warn("catalog cache set failed", "key", key, "err", serr)
		}
	}
	return v, nil
}
