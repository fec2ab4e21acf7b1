// Package metrics exposes the Prometheus collector for filesyncd, adapted
// from the teacher's bfdmetrics package: a struct of pre-registered vectors,
// built once at startup and passed down into the components that report to
// it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "filesyncd"
	subsystem = "node"
)

// Label names for node metrics.
const (
	labelPeer   = "peer"
	labelReason = "reason"
)

// -------------------------------------------------------------------------
// Collector — Prometheus filesyncd Metrics
// -------------------------------------------------------------------------

// Collector holds all filesyncd Prometheus metrics.
//
//   - Sessions gauge tracks currently active peer sessions.
//   - Message counters track protocol traffic per peer.
//   - BytesTransferred/TransferDuration track file-transfer throughput.
//   - ProtocolViolations flags misbehaving peers.
type Collector struct {
	// Sessions tracks the number of currently active peer sessions.
	// Incremented on session registration, decremented on termination.
	Sessions prometheus.Gauge

	// MessagesSent counts protocol messages written to peer sockets.
	MessagesSent *prometheus.CounterVec

	// MessagesReceived counts protocol messages read from peer sockets.
	MessagesReceived *prometheus.CounterVec

	// BytesTransferred counts FILE_BYTES_RESPONSE payload bytes on both
	// sides of a transfer: bytes read and sent to a peer, and bytes received
	// and written to the local store.
	BytesTransferred prometheus.Counter

	// TransferDuration observes the wall-clock time from the first
	// FILE_BYTES_REQUEST to loader completion for one file.
	TransferDuration prometheus.Histogram

	// ProtocolViolations counts sessions terminated by an INVALID_PROTOCOL
	// reply, labeled by reason.
	ProtocolViolations *prometheus.CounterVec
}

// NewCollector creates a Collector with all metrics registered against the
// provided prometheus.Registerer. If reg is nil, prometheus.DefaultRegisterer
// is used.
//
// All metrics are created with the "filesyncd_node_" prefix
// (namespace_subsystem) to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Sessions,
		c.MessagesSent,
		c.MessagesReceived,
		c.BytesTransferred,
		c.TransferDuration,
		c.ProtocolViolations,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	peerLabels := []string{labelPeer}

	return &Collector{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions",
			Help:      "Number of currently active peer sessions.",
		}),

		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Total protocol messages written to peer sockets.",
		}, peerLabels),

		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_received_total",
			Help:      "Total protocol messages read from peer sockets.",
		}, peerLabels),

		BytesTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_transferred_total",
			Help:      "Total file content bytes sent to peers or written to the local store.",
		}),

		TransferDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transfer_duration_seconds",
			Help:      "Wall-clock duration of a file transfer from first request to loader completion.",
			Buckets:   prometheus.DefBuckets,
		}),

		ProtocolViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "protocol_violations_total",
			Help:      "Total sessions terminated after an INVALID_PROTOCOL reply, labeled by reason.",
		}, []string{labelReason}),
	}
}

// -------------------------------------------------------------------------
// Message Counters
// -------------------------------------------------------------------------

// IncMessagesSent increments the sent-messages counter for the given peer.
func (c *Collector) IncMessagesSent(peer string) {
	c.MessagesSent.WithLabelValues(peer).Inc()
}

// IncMessagesReceived increments the received-messages counter for the
// given peer.
func (c *Collector) IncMessagesReceived(peer string) {
	c.MessagesReceived.WithLabelValues(peer).Inc()
}

// -------------------------------------------------------------------------
// Protocol Violations
// -------------------------------------------------------------------------

// IncProtocolViolation increments the protocol violations counter, labeled
// by reason (the INVALID_PROTOCOL message text).
func (c *Collector) IncProtocolViolation(reason string) {
	c.ProtocolViolations.WithLabelValues(reason).Inc()
}
