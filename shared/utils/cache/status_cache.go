package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusTTL bounds how stale a cached status/progress pair may be
var StatusTTL = 30 * time.Second

// StatusPayload mirrors the GET /documents/:id/status response body
type StatusPayload struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// StatusCache caches document status lookups in Redis. All methods are
// nil-safe: a nil cache degrades to direct database reads.
type StatusCache struct {
	client *redis.Client
}

// NewStatusCache connects to Redis using a REDIS_URL style address.
// Returns nil (no cache) when url is empty.
func NewStatusCache(url string) (*StatusCache, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("Redis status cache initialized - %s", opts.Addr)
	return &StatusCache{client: client}, nil
}

func statusKey(documentID string) string {
	return "doc:status:" + documentID
}

// Get returns the cached status for a document, if present
func (c *StatusCache) Get(ctx context.Context, documentID string) (*StatusPayload, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	result, err := c.client.Get(ctx, statusKey(documentID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("status cache read error: %v", err)
		}
		return nil, false
	}

	var payload StatusPayload
	if err := json.Unmarshal([]byte(result), &payload); err != nil {
		return nil, false
	}
	return &payload, true
}

// Set stores a status payload with the standard TTL
func (c *StatusCache) Set(ctx context.Context, documentID string, payload StatusPayload) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statusKey(documentID), data, StatusTTL).Err(); err != nil {
		log.Printf("status cache write error: %v", err)
	}
}

// Invalidate drops the cached status after any mutation of the document
func (c *StatusCache) Invalidate(ctx context.Context, documentID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, statusKey(documentID)).Err(); err != nil {
		log.Printf("status cache invalidate error: %v", err)
	}
}

// Close releases the Redis connection
func (c *StatusCache) Close() error {
	if c != nil && c.client != nil {
		return c.client.Close()
	}
	return nil
}
