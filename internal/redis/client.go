package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const eventKeyPrefix = "webhook:"

type Client struct {
	rdb *redis.Client
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Seen reports whether the webhook event key has been marked processed.
func (c *Client) Seen(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, eventKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check event key: %w", err)
	}
	return n > 0, nil
}

// Mark records the webhook event key as processed for ttl.
func (c *Client) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, eventKeyPrefix+key, time.Now().UTC().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark event key: %w", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// MemoryStore is the in-process stand-in used when Redis is not configured.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Seen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.keys[key]
	if !ok {
		return false, nil
	}
	if !expiry.After(s.now()) {
		delete(s.keys, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Mark(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.keys {
		if !exp.After(now) {
			delete(s.keys, k)
		}
	}
	s.keys[key] = now.Add(ttl)
	return nil
}
