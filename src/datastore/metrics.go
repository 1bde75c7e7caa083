package datastore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dataset operations counted by Metrics.
const (
	OperationInsert = "insert"
	OperationUpdate = "update"
	OperationRemove = "remove"
	OperationFetch  = "fetch"
	OperationList   = "list"
	OperationQuery  = "query"
	OperationClear  = "clear"
)

// Rejection reasons counted by Metrics.
const (
	ReasonValidation = "validation"
	ReasonUnique     = "unique"
)

// Metrics counts dataset operations and rejected saves. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// NewMetrics registers the datastore counters with reg. It returns nil when
// reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "griffon_dataset_operations_total",
			Help: "Total dataset operations by dataset and operation",
		}, []string{"dataset", "operation"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "griffon_dataset_rejections_total",
			Help: "Total rejected saves by dataset and reason",
		}, []string{"dataset", "reason"}),
	}
}

func (m *Metrics) operation(dataset, operation string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(dataset, operation).Inc()
}

func (m *Metrics) rejection(dataset, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(dataset, reason).Inc()
}
