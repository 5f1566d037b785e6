package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tuespacio/tuespacio/internal/listing"
)

// Redis is a ListingCache backed by Redis, storing listings as JSON under
// "listing:{id}".
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			return nil, fmt.Errorf("pinging redis at %s: %w (also failed to close: %v)", addr, err, cerr)
		}
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client. A ttl of zero uses DefaultTTL.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Get implements ListingCache.
func (c *Redis) Get(ctx context.Context, id string) (*listing.Listing, error) {
	data, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key(id), err)
	}
	var l listing.Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key(id), err)
	}
	return &l, nil
}

// Set implements ListingCache.
func (c *Redis) Set(ctx context.Context, l *listing.Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding listing %s: %w", l.ID, err)
	}
	if err := c.client.Set(ctx, key(l.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key(l.ID), err)
	}
	return nil
}

// Delete implements ListingCache.
func (c *Redis) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key(id), err)
	}
	return nil
}

// Close closes the underlying client.
func (c *Redis) Close() error {
	return c.client.Close()
}
