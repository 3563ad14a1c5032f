package http

import (
	"net/http"
	"time"

	"github.com/archfirm/gatehouse/adapters/tokenizer"
)

const SessionCookieName = "admin_session"

// SessionCookie writes and reads the admin session cookie
type SessionCookie struct {
	Secure bool
	MaxAge int
}

// NewSessionCookie returns a cookie config that lives as long as a session token
func NewSessionCookie(secure bool) SessionCookie {
	return SessionCookie{
		Secure: secure,
		MaxAge: int(tokenizer.DefaultTTL / time.Second),
	}
}

func (sc SessionCookie) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, sc.cookie(token, sc.MaxAge))
}

// Clear expires the cookie on the client
func (sc SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, sc.cookie("", -1))
}

// Read returns the raw token or "" when the cookie is absent
func (sc SessionCookie) Read(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (sc SessionCookie) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
