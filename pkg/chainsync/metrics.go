package chainsync

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the prometheus collectors the ingestion core reports
// against. Callers that do not want metrics can use NewNopMetrics, which
// registers nothing.
type Metrics struct {
	MessagesProcessed *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec
	Misbehavior       *prometheus.CounterVec
	Inflight          prometheus.Gauge
	Pending           prometheus.Gauge
}

// NewMetrics builds and registers a Metrics against reg. Pass
// prometheus.NewRegistry() in tests to avoid polluting the default
// registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ckb",
			Subsystem: "chainsync",
			Name:      "messages_processed_total",
			Help:      "Messages processed by the ingestion core, by type and outcome status.",
		}, []string{"type", "status"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ckb",
			Subsystem: "chainsync",
			Name:      "messages_sent_total",
			Help:      "Follow-up messages emitted by the ingestion core, by type.",
		}, []string{"type"}),
		Misbehavior: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ckb",
			Subsystem: "chainsync",
			Name:      "peer_misbehavior_total",
			Help:      "Peers disconnected for misbehavior, by the reason of the penalty that crossed the threshold.",
		}, []string{"reason"}),
		Inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ckb",
			Subsystem: "chainsync",
			Name:      "blocks_inflight",
			Help:      "Current number of in-flight block body reservations.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ckb",
			Subsystem: "chainsync",
			Name:      "compact_blocks_pending",
			Help:      "Current number of compact blocks awaiting reconstruction.",
		}),
	}
	reg.MustRegister(m.MessagesProcessed, m.MessagesSent, m.Misbehavior, m.Inflight, m.Pending)
	return m
}

// NewNopMetrics returns a Metrics backed by an isolated, unregistered
// registry — useful for unit tests that don't care about telemetry.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func (m *Metrics) observeProcessed(msgType string, status Status) {
	if m == nil {
		return
	}
	m.MessagesProcessed.WithLabelValues(msgType, status.Code().String()).Inc()
}

func (m *Metrics) observeSent(msgType string) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(msgType).Inc()
}

func (m *Metrics) observeMisbehavior(reason string) {
	if m == nil {
		return
	}
	m.Misbehavior.WithLabelValues(reason).Inc()
}
