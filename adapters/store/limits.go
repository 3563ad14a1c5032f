package store

import (
	"time"

	"github.com/archfirm/gatehouse/core"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

// verdict turns a post-increment counter into an Attempt
func verdict(attempts, maxAttempts int, resetIn time.Duration) core.Attempt {
	if attempts > maxAttempts {
		if resetIn < 0 {
			resetIn = 0
		}
		return core.Attempt{Allowed: false, Attempts: attempts, RetryAfter: resetIn}
	}
	return core.Attempt{Allowed: true, Attempts: attempts, Remaining: maxAttempts - attempts}
}

func normalize(maxAttempts int, window time.Duration) (int, time.Duration) {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return maxAttempts, window
}
