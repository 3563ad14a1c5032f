package core

import "time"

// Session represents an authenticated administrator session carried by the cookie token
type Session struct {
	ID        string    // Unique token identifier (jti)
	Identity  string    // Email address of the administrator
	Nonce     string    // Random value that makes every issued token distinct
	IssuedAt  time.Time // When the token was issued
	ExpiresAt time.Time // When the token stops being accepted
}

// Attempt is the limiter's verdict for one recorded login attempt
type Attempt struct {
	Allowed    bool
	Attempts   int           // Attempts counted in the current window, this one included
	Remaining  int           // Attempts left before the client is blocked
	RetryAfter time.Duration // Time until the window resets, set only when blocked
}

// LoginOutcome labels how a login attempt ended
type LoginOutcome string

const (
	OutcomeSucceeded          LoginOutcome = "succeeded"
	OutcomeInvalidCredentials LoginOutcome = "invalid_credentials"
	OutcomeInvalidInput       LoginOutcome = "invalid_input"
	OutcomeRateLimited        LoginOutcome = "rate_limited"
	OutcomeError              LoginOutcome = "error"
)
