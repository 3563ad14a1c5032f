package ports

import (
	"context"

	"github.com/archfirm/gatehouse/core"
)

// AuditPublisher ships audit events to whoever watches the admin surface
type AuditPublisher interface {
	Publish(ctx context.Context, event core.AuditEvent) error
}
