package storage

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-hold/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestGetProduct(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// Setup
	client.Del(ctx, "product:test-item")
	err := adapter.SetProduct(ctx, &domain.Product{
		ID:         "test-item",
		Name:       "Test Item",
		PricePaise: 49900,
		Stock:      10,
	})
	if err != nil {
		t.Fatalf("SetProduct failed: %v", err)
	}

	// Test
	product, err := adapter.GetProduct(ctx, "test-item")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product == nil {
		t.Fatal("expected product, got nil")
	}

	// Verify
	if product.Name != "Test Item" {
		t.Errorf("expected name 'Test Item', got %q", product.Name)
	}
	if product.PricePaise != 49900 {
		t.Errorf("expected price 49900, got %d", product.PricePaise)
	}
	if product.Stock != 10 {
		t.Errorf("expected stock 10, got %d", product.Stock)
	}

	// Cleanup
	client.Del(ctx, "product:test-item")
}

func TestGetProduct_Missing(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, "product:no-such-item")

	product, err := adapter.GetProduct(ctx, "no-such-item")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product != nil {
		t.Errorf("expected nil for missing product, got %+v", product)
	}
}

func TestSetIdempotency(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// Setup
	client.Del(ctx, "payment:test-pay-1")

	// First set succeeds
	ok, err := adapter.SetIdempotency(ctx, "payment:test-pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first set to succeed")
	}

	// Second set reports the replay
	ok, err = adapter.SetIdempotency(ctx, "payment:test-pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second set to fail")
	}

	// Cleanup
	client.Del(ctx, "payment:test-pay-1")
}
