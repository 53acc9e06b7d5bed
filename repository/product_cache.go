package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nebulamart/storefront-core/models"
)

const productCachePrefix = "product:snapshot:"

// redisCommands is the slice of the Redis client the cache uses; tests
// substitute an in-memory implementation.
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedProductRepository is a read-through Redis cache in front of a
// ProductRepository. Reads may be slightly stale; that is fine for the
// soft add-to-cart stock check, which only warns. Stock mutations go to
// the underlying store and invalidate the cached snapshot.
type CachedProductRepository struct {
	inner ProductRepository
	redis redisCommands
	ttl   time.Duration
}

func NewCachedProductRepository(inner ProductRepository, client redisCommands, ttl time.Duration) *CachedProductRepository {
	return &CachedProductRepository{
		inner: inner,
		redis: client,
		ttl:   ttl,
	}
}

func (r *CachedProductRepository) cacheKey(productID string) string {
	return productCachePrefix + productID
}

func (r *CachedProductRepository) Get(ctx context.Context, productID string) (*models.Product, error) {
	key := r.cacheKey(productID)

	if data, err := r.redis.Get(ctx, key).Result(); err == nil {
		var product models.Product
		if err := json.Unmarshal([]byte(data), &product); err == nil {
			return &product, nil
		}
		zap.L().Warn("Failed to unmarshal cached product, falling through", zap.String("product_id", productID))
	}

	product, err := r.inner.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := r.redis.Set(ctx, key, data, r.ttl).Err(); err != nil {
			zap.L().Warn("Failed to cache product snapshot", zap.String("product_id", productID), zap.Error(err))
		}
	}
	return product, nil
}

func (r *CachedProductRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	err := r.inner.DecrementStock(ctx, productID, quantity)
	r.invalidate(ctx, productID)
	return err
}

func (r *CachedProductRepository) IncrementStock(ctx context.Context, productID string, quantity int) error {
	err := r.inner.IncrementStock(ctx, productID, quantity)
	r.invalidate(ctx, productID)
	return err
}

func (r *CachedProductRepository) invalidate(ctx context.Context, productID string) {
	if err := r.redis.Del(ctx, r.cacheKey(productID)).Err(); err != nil {
		zap.L().Warn("Failed to invalidate product cache", zap.String("product_id", productID), zap.Error(err))
	}
}
