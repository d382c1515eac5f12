package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	headerKey      = "X-Request-ID"
	contextKey     = "request_id"
	idempotencyKey = "Idempotency-Key"
	maxKeyLength   = 128
)

// Middleware assigns a unique request ID to each incoming HTTP request.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerKey)
		if reqID == "" {
			reqID = generateID()
		}

		c.Set(contextKey, reqID)
		c.Writer.Header().Set(headerKey, reqID)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// ActionKey identifies a single user action for idempotent side effects.
// It prefers the client supplied Idempotency-Key header and falls back to the request ID,
// so retries of the same HTTP request collapse while distinct clicks stay distinct.
func ActionKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(idempotencyKey)); key != "" {
		if len(key) > maxKeyLength {
			key = key[:maxKeyLength]
		}
		return key
	}
	if id := Value(c); id != "" {
		return id
	}
	return generateID()
}

func generateID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}

	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
