package observability

import "github.com/prometheus/client_golang/prometheus"

// Contact log operations and outcomes used as metric labels.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpExport = "export"

	OutcomeOK                = "ok"
	OutcomeNotFound          = "not_found"
	OutcomeAdverseEvent      = "adverse_event_locked"
	OutcomeOutsideEditWindow = "outside_edit_window"
	OutcomeInvalid           = "invalid"
	OutcomeError             = "error"
)

var (
	// contactLogOps counts contact log mutations by operation and outcome.
	contactLogOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ServiceNamespace,
			Name:      "operations_total",
			Help:      "Contact log operations by kind and outcome.",
		},
		[]string{"op", "outcome"},
	)

	// reportRows records how many rows each report export contained.
	reportRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: ServiceNamespace,
			Name:      "report_rows",
			Help:      "Rows written per contact log report export.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 7), // 10..40960
		},
	)
)

func init() {
	prometheus.MustRegister(contactLogOps, reportRows)
}

// RecordContactLogOp increments the operation counter.
func RecordContactLogOp(op, outcome string) {
	contactLogOps.WithLabelValues(op, outcome).Inc()
}

// ObserveReportRows records the size of one report export.
func ObserveReportRows(n int) {
	reportRows.Observe(float64(n))
}
