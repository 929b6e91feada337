// Package cache keeps derived read models in Redis.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultUnreadTTL = 10 * time.Minute

// UnreadCache caches per-recipient unread notification counts. Every
// recipient has a generation counter that Invalidate bumps; a cached count
// is stamped with the generation it was computed under and only counts as a
// hit while that generation is current. A read-through Set that races an
// invalidation therefore writes an entry that is already dead.
//
// A miss is reported as ok == false, never as an error.
type UnreadCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewUnreadCache(client redis.Cmdable, ttl time.Duration) *UnreadCache {
	if ttl <= 0 {
		ttl = DefaultUnreadTTL
	}
	return &UnreadCache{client: client, ttl: ttl, prefix: "greencampus:unread:"}
}

// Open dials addr and verifies the connection.
func Open(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *UnreadCache) key(recipientID string) string {
	return c.prefix + recipientID
}

func (c *UnreadCache) genKey(recipientID string) string {
	return c.prefix + "gen:" + recipientID
}

// Get returns the cached count when it is current, and in every case the
// generation a fresh count should be stored under.
func (c *UnreadCache) Get(ctx context.Context, recipientID string) (count int, gen int64, ok bool, err error) {
	vals, err := c.client.MGet(ctx, c.key(recipientID), c.genKey(recipientID)).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("get unread count: %w", err)
	}
	if len(vals) != 2 {
		return 0, 0, false, fmt.Errorf("get unread count: got %d values", len(vals))
	}
	if raw, isStr := vals[1].(string); isStr {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return 0, 0, false, fmt.Errorf("get unread generation: %w", err)
		}
	}

	raw, isStr := vals[0].(string)
	if !isStr {
		return 0, gen, false, nil
	}
	stamp, countRaw, found := strings.Cut(raw, ":")
	if !found || stamp != strconv.FormatInt(gen, 10) {
		return 0, gen, false, nil
	}
	count, err = strconv.Atoi(countRaw)
	if err != nil {
		return 0, gen, false, nil
	}
	return count, gen, true, nil
}

// Set stores count as valid for generation gen.
func (c *UnreadCache) Set(ctx context.Context, recipientID string, gen int64, count int) error {
	val := strconv.FormatInt(gen, 10) + ":" + strconv.Itoa(count)
	if err := c.client.Set(ctx, c.key(recipientID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("set unread count: %w", err)
	}
	return nil
}

// Invalidate bumps each recipient's generation and drops the cached count.
// The generation outlives any count stamped with an older value.
func (c *UnreadCache) Invalidate(ctx context.Context, recipientIDs ...string) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		gk := c.genKey(id)
		if err := c.client.Incr(ctx, gk).Err(); err != nil {
			return fmt.Errorf("invalidate unread count: %w", err)
		}
		if err := c.client.Expire(ctx, gk, 2*c.ttl).Err(); err != nil {
			return fmt.Errorf("invalidate unread count: %w", err)
		}
		keys = append(keys, c.key(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate unread count: %w", err)
	}
	return nil
}
