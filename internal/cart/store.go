package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/go-redis/redis/v8"
)

// Store persists pending carts in Redis, keyed by owner. A cart is the whole
// item list: every write replaces it and resets the TTL (last writer wins).
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a cart store and verifies the Redis connection
func NewStore(addr, password string, db int, ttl time.Duration) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{rdb: rdb, ttl: ttl}, nil
}

// NewStoreWithClient wraps an existing Redis client (used by tests)
func NewStoreWithClient(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.rdb.Close()
}

func cartKey(ownerKey string) string {
	return fmt.Sprintf("cart:%s", ownerKey)
}

// Get returns the cart for an owner. A missing or expired cart is an empty
// slice, never an error; a store failure is surfaced as a retryable error so
// callers cannot mistake an outage for an empty cart.
func (s *Store) Get(ctx context.Context, ownerKey string) ([]models.CartItem, error) {
	util.CartOpsTotal.WithLabelValues("get").Inc()

	raw, err := s.rdb.Get(ctx, cartKey(ownerKey)).Bytes()
	if err == redis.Nil {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart store unavailable: %w", err)
	}

	var items []models.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return items, nil
}

// Set replaces the whole cart and resets its expiry
func (s *Store) Set(ctx context.Context, ownerKey string, items []models.CartItem) error {
	util.CartOpsTotal.WithLabelValues("set").Inc()

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := s.rdb.Set(ctx, cartKey(ownerKey), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("cart store unavailable: %w", err)
	}
	return nil
}

// Clear deletes the cart. Clearing an absent cart is a no-op success.
func (s *Store) Clear(ctx context.Context, ownerKey string) error {
	util.CartOpsTotal.WithLabelValues("clear").Inc()

	if err := s.rdb.Del(ctx, cartKey(ownerKey)).Err(); err != nil {
		return fmt.Errorf("cart store unavailable: %w", err)
	}
	return nil
}
