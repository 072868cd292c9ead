package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
	maxRequestIDLen = 128
)

// RequestID adopts a well-formed inbound X-Request-ID or mints a UUID, and
// echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if !usableRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Header(HeaderRequestID, rid)
		c.Set(ctxRequestID, rid)
		c.Next()
	}
}

// usableRequestID accepts short printable ASCII so ids are safe to log.
func usableRequestID(rid string) bool {
	if rid == "" || len(rid) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(rid); i++ {
		if rid[i] < 0x21 || rid[i] > 0x7e {
			return false
		}
	}
	return true
}

func RequestIDOf(c *gin.Context) string { return c.GetString(ctxRequestID) }

// RequestIDField tags a log entry with the current request id.
func RequestIDField(c *gin.Context) zap.Field {
	return zap.String("request_id", RequestIDOf(c))
}
