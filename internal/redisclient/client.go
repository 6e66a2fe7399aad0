package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps redis for the two things this service needs: a stock
// snapshot cache for cheap availability pre-checks, and a lock so only
// one instance runs an expiration sweep at a time. The SQL store stays
// authoritative; everything here is advisory.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID, variantID string) string {
	if variantID == "" {
		return fmt.Sprintf("stock:%s", productID)
	}
	return fmt.Sprintf("stock:%s:%s", productID, variantID)
}

// SetStock caches a counter snapshot for a product/variant pair
func (c *Client) SetStock(ctx context.Context, productID, variantID string, quantity, reserved int) error {
	key := stockKey(productID, variantID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "quantity", quantity, "reserved", reserved)
	pipe.Expire(ctx, key, time.Hour)

	_, err := pipe.Exec(ctx)
	return err
}

// GetStock reads a cached counter snapshot; ok is false on a miss
func (c *Client) GetStock(ctx context.Context, productID, variantID string) (quantity, reserved int, ok bool, err error) {
	result, err := c.rdb.HGetAll(ctx, stockKey(productID, variantID)).Result()
	if err != nil {
		return 0, 0, false, err
	}
	if len(result) == 0 {
		return 0, 0, false, nil
	}

	fmt.Sscanf(result["quantity"], "%d", &quantity)
	fmt.Sscanf(result["reserved"], "%d", &reserved)
	return quantity, reserved, true, nil
}

// InvalidateStock drops the cached snapshot for a pair
func (c *Client) InvalidateStock(ctx context.Context, productID, variantID string) error {
	return c.rdb.Del(ctx, stockKey(productID, variantID)).Err()
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
