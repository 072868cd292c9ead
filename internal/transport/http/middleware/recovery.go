package middleware

import (
	"fmt"
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "go-gin-auth-backend/internal/transport/http/response"
)

// Recovery logs panics with their stack and answers with the 500 envelope.
// The panic value is only shown when expose is set.
func Recovery(l *zap.Logger, expose bool) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(l, true, func(c *gin.Context, rec any) {
		body := resp.Fail(http.StatusInternalServerError, "")
		if expose {
			body.Error = fmt.Sprint(rec)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
