package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
)

// Outcome label values.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Metrics counts auth operations by outcome.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics registers the auth operation counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Auth operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
}

// observe records one operation. Classified client errors count as
// rejected; anything else as error. A nil receiver is a no-op.
func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	switch {
	case err == nil:
	case apperrors.IsClassified(err):
		outcome = outcomeRejected
	default:
		outcome = outcomeError
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}
