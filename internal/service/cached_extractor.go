package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const extractCachePrefix = "extract:"

type textExtractor interface {
	Extract(ctx context.Context, fileURL, fileType string) string
}

// CachedExtractor memoises extracted document text in the shared cache. Empty results are
// not cached so a transient fetch failure is retried on the next request.
type CachedExtractor struct {
	next  textExtractor
	cache *CacheService
	ttl   time.Duration
}

// NewCachedExtractor wraps next. A nil or disabled cache passes every call through.
func NewCachedExtractor(next textExtractor, cache *CacheService, ttl time.Duration) *CachedExtractor {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedExtractor{next: next, cache: cache, ttl: ttl}
}

// Extract returns cached text for the file or extracts and stores it.
func (e *CachedExtractor) Extract(ctx context.Context, fileURL, fileType string) string {
	key := extractCacheKey(fileURL, fileType)

	var text string
	if hit, _ := e.cache.Get(ctx, key, &text); hit {
		return text
	}
	text = e.next.Extract(ctx, fileURL, fileType)
	if text != "" {
		_ = e.cache.Set(ctx, key, text, e.ttl)
	}
	return text
}

func extractCacheKey(fileURL, fileType string) string {
	sum := sha256.Sum256([]byte(strings.ToUpper(fileType) + "|" + fileURL))
	return extractCachePrefix + hex.EncodeToString(sum[:])
}
