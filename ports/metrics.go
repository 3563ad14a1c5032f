package ports

import "github.com/archfirm/gatehouse/core"

type LoginMetrics interface {
	Observe(outcome core.LoginOutcome)
}
