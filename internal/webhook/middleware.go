package webhook

import (
	"crypto/subtle"
	"net/http"

	"map_widget_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// keyHeader carries the shared webhook key on every host push.
const keyHeader = "X-Webhook-Key"

// KeyAuthMiddleware validates the shared webhook key in constant time.
func KeyAuthMiddleware(cfg config.WebhookConfig) gin.HandlerFunc {
	expected := []byte(cfg.GetWebhookKey())
	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(keyHeader))
		if len(provided) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing webhook key"})
			return
		}
		if subtle.ConstantTimeCompare(expected, provided) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook key"})
			return
		}
		c.Next()
	}
}
