package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-hold/internal/core/domain"
)

const (
	productKeyPrefix  = "product:"
	idempotencyKeyTTL = 24 * time.Hour
)

// RedisAdapter exposes the product catalog out of Redis hashes and provides
// the SETNX-based idempotency guard used by the payment adapter. Stock
// counters are NOT mutated here; the ledger owns them, Redis only seeds.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

// SetProduct writes the catalog entry for a product.
func (r *RedisAdapter) SetProduct(ctx context.Context, product *domain.Product) error {
	key := productKeyPrefix + product.ID
	return r.client.HSet(ctx, key,
		"name", product.Name,
		"price_paise", product.PricePaise,
		"stock", product.Stock,
	).Err()
}

// GetProduct reads a catalog entry. Returns (nil, nil) when absent.
func (r *RedisAdapter) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	key := productKeyPrefix + productID
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	product := &domain.Product{ID: productID, Name: fields["name"]}
	if _, err := fmt.Sscan(fields["price_paise"], &product.PricePaise); err != nil {
		return nil, fmt.Errorf("parse price for %s: %w", productID, err)
	}
	if _, err := fmt.Sscan(fields["stock"], &product.Stock); err != nil {
		return nil, fmt.Errorf("parse stock for %s: %w", productID, err)
	}
	return product, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}
