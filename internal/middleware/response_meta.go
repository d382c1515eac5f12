package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey  = "response_meta"
	requestStartKey  = "response_meta_start"
	cacheHitKey      = "cache_hit"
	processingTimeMs = "processing_time_ms"
)

// WithResponseMeta starts the clock for processing_time_ms and gives handlers a meta map
// that ends up in the envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records whether the payload came from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaMap(c)[cacheHitKey] = hit
}

// ExtractMeta returns a copy of the request meta, stamped with the time spent so far.
// Call it right before writing the body. Nil when nothing was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	stored, _ := c.Get(responseMetaKey)
	typed, _ := stored.(map[string]interface{})
	start, started := c.Get(requestStartKey)
	if len(typed) == 0 && !started {
		return nil
	}

	out := make(map[string]interface{}, len(typed)+1)
	for k, v := range typed {
		out[k] = v
	}
	if at, ok := start.(time.Time); ok {
		out[processingTimeMs] = time.Since(at).Milliseconds()
	}
	return out
}

func metaMap(c *gin.Context) map[string]interface{} {
	if stored, exists := c.Get(responseMetaKey); exists {
		if typed, ok := stored.(map[string]interface{}); ok {
			return typed
		}
	}
	created := make(map[string]interface{})
	c.Set(responseMetaKey, created)
	return created
}
