package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/artgen/internal/auth"
	"github.com/timmy/artgen/internal/logger"
)

// RequireSession aborts with 401 unless the session cookie maps to a stored token.
func RequireSession(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, _ := c.Cookie(auth.SessionCookieName)
		sess, err := gate.Session(c.Request.Context(), sid)
		if err != nil {
			logger.CtxError(c.Request.Context(), "Session lookup failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
			return
		}
		if !sess.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
