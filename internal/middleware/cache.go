package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// CacheControl marks a response publicly cacheable for maxAgeSeconds.
// Applied to the published-exam catalog, which every trainee polls.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAgeSeconds))
		c.Next()
	}
}
