package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const contentKeyPrefix = "outliner:document:content:"

// ContentCache is a Redis-backed cache for full document texts. Large
// documents are read on nearly every segment mutation, so the hot path
// avoids the TEXT column when it can.
//
// The cache is strictly an accelerator: every method degrades to a no-op
// (with a warning log) when Redis is unavailable, and callers always fall
// back to the database on a miss.
type ContentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewContentCache creates a content cache. A nil client disables caching
// entirely; all operations become misses.
func NewContentCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ContentCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &ContentCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached content for a document. The second return value
// reports a hit; Redis failures are logged and reported as a miss.
func (c *ContentCache) Get(ctx context.Context, documentID string) (string, bool) {
	if c.client == nil {
		return "", false
	}

	content, err := c.client.Get(ctx, contentKey(documentID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("content cache read failed, falling back to database",
				"document_id", documentID,
				"error", err)
		}
		return "", false
	}
	return content, true
}

// Set stores a document's content with the configured TTL.
func (c *ContentCache) Set(ctx context.Context, documentID, content string) {
	if c.client == nil {
		return
	}

	if err := c.client.Set(ctx, contentKey(documentID), content, c.ttl).Err(); err != nil {
		c.logger.Warn("content cache write failed",
			"document_id", documentID,
			"error", err)
	}
}

// Invalidate drops a document's cached content. Called whenever the
// content column changes or the document is deleted.
func (c *ContentCache) Invalidate(ctx context.Context, documentID string) {
	if c.client == nil {
		return
	}

	if err := c.client.Del(ctx, contentKey(documentID)).Err(); err != nil {
		c.logger.Warn("content cache invalidation failed",
			"document_id", documentID,
			"error", err)
	}
}

func contentKey(documentID string) string {
	return contentKeyPrefix + documentID
}

// CreateClient connects to Redis and verifies the connection. An empty
// URL returns a nil client, which NewContentCache treats as cache-off.
func CreateClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
