package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestContentCacheNilClient(t *testing.T) {
	// Cache-off mode: every operation is a safe no-op and Get always misses.
	c := NewContentCache(nil, time.Hour, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	c.Set(ctx, "doc-1", "content")
	if content, ok := c.Get(ctx, "doc-1"); ok || content != "" {
		t.Errorf("Get() = (%q, %v), want miss", content, ok)
	}
	c.Invalidate(ctx, "doc-1")
}

func TestNewContentCacheDefaults(t *testing.T) {
	c := NewContentCache(nil, 0, nil)
	if c.ttl != 48*time.Hour {
		t.Errorf("default ttl = %v, want 48h", c.ttl)
	}
	if c.logger == nil {
		t.Error("logger should default, not stay nil")
	}
}

func TestContentKey(t *testing.T) {
	if got := contentKey("abc-123"); got != "outliner:document:content:abc-123" {
		t.Errorf("contentKey() = %q", got)
	}
}

func TestCreateClientEmptyURL(t *testing.T) {
	client, err := CreateClient(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateClient(\"\") error = %v", err)
	}
	if client != nil {
		t.Error("CreateClient(\"\") should return a nil client (cache off)")
	}
}

func TestCreateClientBadURL(t *testing.T) {
	if _, err := CreateClient(context.Background(), "not-a-url"); err == nil {
		t.Error("CreateClient(invalid) should fail")
	}
}
