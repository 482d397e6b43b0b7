package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// EndOnShutdown cancels the request context once shutdown is cancelled.
// Long-lived streams (WebSocket, SSE) watch that context and return, so
// http.Server.Shutdown is not left waiting on them.
func EndOnShutdown(shutdown context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()
		stop := context.AfterFunc(shutdown, cancel)
		defer stop()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
