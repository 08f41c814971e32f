package tracewire

import (
	"github.com/prometheus/client_golang/prometheus"
)

// coordinatorMetrics counts what the coordinator did with the operations
// it saw. The counters always exist so call sites stay unconditional;
// they are only exported when a Registerer is supplied via WithMetrics.
type coordinatorMetrics struct {
	spansStarted        prometheus.Counter
	spansFinished       prometheus.Counter
	operationsSkipped   *prometheus.CounterVec
	headerWriteFailures prometheus.Counter
	duplicateKeys       prometheus.Counter
}

const (
	skipReasonTransport  = "transport_disabled"
	skipReasonOrigin     = "origin_filtered"
	skipReasonNoTxn      = "no_active_transaction"
	skipReasonUnknownKey = "unknown_correlation_key"
)

func newCoordinatorMetrics(registerer prometheus.Registerer) *coordinatorMetrics {
	m := &coordinatorMetrics{
		spansStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracewire_spans_started_total",
			Help: "Spans opened for eligible outgoing operations.",
		}),
		spansFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracewire_spans_finished_total",
			Help: "Spans finalized and handed to the span sink.",
		}),
		operationsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracewire_operations_skipped_total",
			Help: "Operations observed but not traced, by reason.",
		}, []string{"reason"}),
		headerWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracewire_header_write_failures_total",
			Help: "Propagation header writes rejected by the header sink.",
		}),
		duplicateKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracewire_duplicate_correlation_keys_total",
			Help: "Start events whose correlation key was already in use.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(
			m.spansStarted,
			m.spansFinished,
			m.operationsSkipped,
			m.headerWriteFailures,
			m.duplicateKeys,
		)
	}
	return m
}
