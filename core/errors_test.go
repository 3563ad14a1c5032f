package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("login: %w", &RateLimitError{RetryAfter: 90 * time.Second})

	assert.True(t, errors.Is(err, ErrRateLimited))

	var rateErr *RateLimitError
	assert.True(t, errors.As(err, &rateErr))
	assert.Equal(t, 90*time.Second, rateErr.RetryAfter)
	assert.Contains(t, err.Error(), "1m30s")
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := &ValidationError{Message: "Invalid email format"}

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "Invalid email format", err.Error())
}
