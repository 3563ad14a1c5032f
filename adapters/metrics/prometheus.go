package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/archfirm/gatehouse/core"
)

// LoginMetrics counts login outcomes
type LoginMetrics struct {
	attempts *prometheus.CounterVec
}

// NewLoginMetrics registers the login counters on reg
func NewLoginMetrics(reg prometheus.Registerer) (*LoginMetrics, error) {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatehouse",
		Name:      "login_attempts_total",
		Help:      "Admin login attempts by outcome.",
	}, []string{"outcome"})

	if err := reg.Register(attempts); err != nil {
		return nil, fmt.Errorf("failed to register login metrics: %w", err)
	}

	return &LoginMetrics{attempts: attempts}, nil
}

func (m *LoginMetrics) Observe(outcome core.LoginOutcome) {
	m.attempts.WithLabelValues(string(outcome)).Inc()
}
