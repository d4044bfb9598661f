package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenCache keeps a short-lived Redis record of recently ingested posts so
// the pipeline can skip the database lookup on hot duplicates. It is an
// optimization layer only: on any Redis error the pipeline falls back to the
// database, so a cold or unavailable cache never loses posts.
type SeenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSeenCache connects to Redis and verifies the connection with a ping.
func NewSeenCache(addr string, ttl time.Duration) (*SeenCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &SeenCache{client: client, ttl: ttl}, nil
}

func seenKey(platform, externalID string) string {
	return fmt.Sprintf("seen:%s:%s", platform, externalID)
}

// Seen reports whether the post was recently marked. Errors are logged and
// reported as unseen so the caller falls through to the database check.
func (c *SeenCache) Seen(ctx context.Context, platform, externalID string) bool {
	count, err := c.client.Exists(ctx, seenKey(platform, externalID)).Result()
	if err != nil {
		slog.Warn("Seen cache lookup failed", "platform", platform, "error", err)
		return false
	}
	return count > 0
}

// Mark records the post as seen for the configured TTL.
func (c *SeenCache) Mark(ctx context.Context, platform, externalID string) {
	err := c.client.Set(ctx, seenKey(platform, externalID), "1", c.ttl).Err()
	if err != nil {
		slog.Warn("Seen cache mark failed", "platform", platform, "error", err)
	}
}

func (c *SeenCache) Close() error {
	return c.client.Close()
}
