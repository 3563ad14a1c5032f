package ports

import (
	"context"

	"github.com/archfirm/gatehouse/core"
)

// AttemptStore counts login attempts per client in fixed windows
type AttemptStore interface {
	// Hit records one attempt for identifier and reports whether it may proceed
	Hit(ctx context.Context, identifier string) (core.Attempt, error)
	// Reset forgets every attempt recorded for identifier
	Reset(ctx context.Context, identifier string) error
}
