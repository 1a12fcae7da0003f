package api

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/session-title/gateway"
	"github.com/xiaoyuanzhu-com/session-title/log"
)

var authLogger = log.GetLogger("ApiAuth")

// SecretKeyMiddleware rejects requests whose x-secret-key header does not
// match secret. An empty secret disables the check.
func SecretKeyMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(gateway.SecretKeyHeader)
		if provided == "" {
			RespondUnauthorized(c, "Missing secret key")
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			authLogger.Warn().Str("ip", c.ClientIP()).Str("path", c.Request.URL.Path).Msg("invalid secret key")
			RespondUnauthorized(c, "Invalid secret key")
			c.Abort()
			return
		}

		c.Next()
	}
}
