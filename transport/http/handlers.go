package http

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/archfirm/gatehouse/core"
	"github.com/archfirm/gatehouse/service"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgTooManyAttempts    = "Too many login attempts. Please try again later."
	msgInternal           = "Internal server error"
	msgUnauthorized       = "Unauthorized"
)

// AuthHandlers contains HTTP handlers for the admin auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	cookie      SessionCookie
	logger      *slog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookie SessionCookie, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// still counted by the limiter, then rejected as missing fields
		req = loginRequest{}
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Client:   ClientIdentifier(c.Request),
	})
	if err != nil {
		h.writeLoginError(c, err)
		return
	}

	h.cookie.Set(c.Writer, result.Token)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandlers) writeLoginError(c *gin.Context, err error) {
	var rateErr *core.RateLimitError
	var validationErr *core.ValidationError

	switch {
	case errors.As(err, &rateErr):
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rateErr.RetryAfter)))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msgTooManyAttempts})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.Is(err, core.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgInvalidCredentials})
	default:
		h.logger.ErrorContext(c.Request.Context(), "login failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

// Logout clears the session cookie; it succeeds even without a session
func (h *AuthHandlers) Logout(c *gin.Context) {
	if token := h.cookie.Read(c.Request); token != "" {
		h.authService.Logout(c.Request.Context(), ClientIdentifier(c.Request), token)
	}

	h.cookie.Clear(c.Writer)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Session returns the session the gate attached to the request
func (h *AuthHandlers) Session(c *gin.Context) {
	session, ok := SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity":  session.Identity,
		"issuedAt":  session.IssuedAt.UTC().Format(time.RFC3339),
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
