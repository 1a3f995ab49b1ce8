package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/artgen/internal/auth"
	"github.com/timmy/artgen/internal/logger"
)

// AuthHandler serves the OAuth2 login endpoints.
type AuthHandler struct {
	gate         *auth.Gate
	sessionTTL   time.Duration
	cookieSecure bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(gate *auth.Gate, sessionTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{gate: gate, sessionTTL: sessionTTL, cookieSecure: cookieSecure}
}

// Login handles GET /login.
func (h *AuthHandler) Login(c *gin.Context) {
	sid, _ := c.Cookie(auth.SessionCookieName)

	sid, redirect, err := h.gate.Login(c.Request.Context(), sid)
	if err != nil {
		respondError(c, err, "error")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, sid, auth.CookieMaxAge(h.sessionTTL), "/", "", h.cookieSecure, true)
	c.Redirect(http.StatusFound, redirect)
}

// Callback handles GET /login/callback.
func (h *AuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()
	sid, _ := c.Cookie(auth.SessionCookieName)

	sid, err := h.gate.Callback(ctx, sid, c.Query("state"), c.Query("code"))
	if err != nil {
		if errors.Is(err, auth.ErrStateMismatch) {
			logger.CtxWarn(ctx, "Login callback rejected: client_ip=%s", c.ClientIP())
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state parameter"})
			return
		}
		logger.CtxError(ctx, "Login callback failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, sid, auth.CookieMaxAge(h.sessionTTL), "/", "", h.cookieSecure, true)
	c.Redirect(http.StatusFound, "/protected")
}

// Protected handles GET /protected; the session middleware has already run.
func (h *AuthHandler) Protected(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "You are logged in"})
}
