package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/archfirm/gatehouse/core"
	"github.com/archfirm/gatehouse/service"
)

const (
	AdminPrefix    = "/admin"
	LoginPage      = "/admin/login"
	AdminAPIPrefix = "/api/admin"
	LoginEndpoint  = "/api/admin/login"
	LogoutEndpoint = "/api/admin/logout"

	PathnameHeader = "X-Pathname"
	PathnameKey    = "pathname"

	sessionKey = "adminSession"
)

// Gate protects the admin pages and the admin API. It runs on every request
// and verifies the session cookie again each time.
func Gate(authService *service.AuthService, cookie SessionCookie, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Request.Header.Set(PathnameHeader, path)
		c.Set(PathnameKey, path)

		switch {
		case isLoginPage(path):
			token := cookie.Read(c.Request)
			if token == "" {
				break
			}
			if _, err := authService.Authenticate(c.Request.Context(), token); err == nil {
				c.Redirect(http.StatusFound, AdminPrefix)
				c.Abort()
				return
			}
			cookie.Clear(c.Writer)

		case underPrefix(path, AdminPrefix):
			session, ok := authenticate(c, authService, cookie, logger)
			if !ok {
				cookie.Clear(c.Writer)
				c.Redirect(http.StatusFound, LoginPage)
				c.Abort()
				return
			}
			c.Set(sessionKey, session)

		case underPrefix(path, AdminAPIPrefix) && !isPublicEndpoint(path):
			session, ok := authenticate(c, authService, cookie, logger)
			if !ok {
				cookie.Clear(c.Writer)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
				return
			}
			c.Set(sessionKey, session)
		}

		c.Next()
	}
}

// SessionFromContext returns the session attached by Gate
func SessionFromContext(c *gin.Context) (*core.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*core.Session)
	return session, ok
}

func authenticate(c *gin.Context, authService *service.AuthService, cookie SessionCookie, logger *slog.Logger) (*core.Session, bool) {
	token := cookie.Read(c.Request)
	if token == "" {
		return nil, false
	}

	session, err := authService.Authenticate(c.Request.Context(), token)
	if err != nil {
		logger.DebugContext(c.Request.Context(), "session rejected",
			slog.String("path", c.Request.URL.Path),
			slog.String("client", ClientIdentifier(c.Request)),
			slog.Any("err", err),
		)
		return nil, false
	}
	return session, true
}

func isLoginPage(path string) bool {
	return trimSlash(path) == LoginPage
}

func isPublicEndpoint(path string) bool {
	p := trimSlash(path)
	return p == LoginEndpoint || p == LogoutEndpoint
}

// underPrefix matches prefix itself and anything below it, but not /adminfoo
func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func trimSlash(path string) string {
	if len(path) > 1 {
		return strings.TrimRight(path, "/")
	}
	return path
}

// RequestLogger writes one line per request
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.LogAttrs(c.Request.Context(), slog.LevelInfo, "http",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("dur", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client", ClientIdentifier(c.Request)),
		)
	}
}

// Recovery turns panics into a generic 500; details stay in the log
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.LogAttrs(c.Request.Context(), slog.LevelError, "panic",
			slog.String("path", c.Request.URL.Path),
			slog.Any("reason", rec),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	})
}
