// Package metrics defines the Prometheus counters and gauges referenced
// only where they intersect the fingerprint pipeline, per spec.md §1 and
// SPEC_FULL.md's ambient-stack metrics list.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the metrics the Connection Orchestrator and fingerprint
// pipeline increment. A single Registry is constructed at start-up and
// threaded through the components that report into it.
type Registry struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected prometheus.Counter
	TLSHandshakeErrors  prometheus.Counter
	H2FingerprintFail   prometheus.Counter
	SynLookupMisses     prometheus.Counter
	RateLimitDenied     prometheus.Counter
	BackendErrors       prometheus.Counter
	ConnectionTimeouts  prometheus.Counter
	LiveConnections     prometheus.Gauge
	LiveTLSConnections  prometheus.Gauge
}

// New constructs a Registry and registers every metric on reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "connections_accepted_total",
			Help: "Connections admitted and past TLS/plaintext setup.",
		}),
		ConnectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "connections_rejected_total",
			Help: "Connections rejected at admission (max_connections reached or IP ACL denied).",
		}),
		TLSHandshakeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tls_handshake_errors_total",
			Help: "TLS handshakes that failed or timed out.",
		}),
		H2FingerprintFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "h2_fingerprint_failures_total",
			Help: "Fingerprinted requests forwarded without an Akamai HTTP/2 fingerprint header.",
		}),
		SynLookupMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syn_lookup_misses_total",
			Help: "SYN table lookups that found no entry for the peer tuple.",
		}),
		RateLimitDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limit_denied_total",
			Help: "Requests denied by the rate limiter.",
		}),
		BackendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backend_errors_total",
			Help: "Requests that failed while forwarding to a backend.",
		}),
		ConnectionTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "connection_timeouts_total",
			Help: "Connections closed by the total connection-handling timeout.",
		}),
		LiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "live_connections",
			Help: "Currently admitted connections.",
		}),
		LiveTLSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "live_tls_connections",
			Help: "Currently admitted TLS connections.",
		}),
	}

	reg.MustRegister(
		m.ConnectionsAccepted,
		m.ConnectionsRejected,
		m.TLSHandshakeErrors,
		m.H2FingerprintFail,
		m.SynLookupMisses,
		m.RateLimitDenied,
		m.BackendErrors,
		m.ConnectionTimeouts,
		m.LiveConnections,
		m.LiveTLSConnections,
	)
	return m
}
