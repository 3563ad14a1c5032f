package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/archfirm/gatehouse/service"
)

// Options configure the router around the auth service
type Options struct {
	Logger         *slog.Logger
	SecureCookies  bool
	AllowedOrigins []string
	// Metrics is served on /metrics when set
	Metrics http.Handler
	// Ready reports readiness on /healthz; nil means always ready
	Ready func() bool
	// MountAdmin attaches the admin pages. They sit behind the gate.
	MountAdmin func(admin *gin.RouterGroup)
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(RequestLogger(logger), Recovery(logger))
	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	}

	cookie := NewSessionCookie(opts.SecureCookies)
	router.Use(Gate(authService, cookie, logger))

	handlers := NewAuthHandlers(authService, cookie, logger)

	router.GET("/livez", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/healthz", func(c *gin.Context) {
		if opts.Ready != nil && !opts.Ready() {
			c.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	api := router.Group(AdminAPIPrefix)
	{
		api.POST("/login", handlers.Login)
		api.POST("/logout", handlers.Logout)
		api.GET("/session", handlers.Session)
	}

	if opts.MountAdmin != nil {
		opts.MountAdmin(router.Group(AdminPrefix))
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}
