package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "go-gin-auth-backend/internal/transport/http/response"
)

// MaxBodyBytes caps request bodies at n bytes. Reads past the cap fail with
// *http.MaxBytesError, which the action binder turns into a 413.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			abortTooLarge(c)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func abortTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp.Fail(http.StatusRequestEntityTooLarge, ""))
}
