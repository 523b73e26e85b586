package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// States lists every value SetState may receive.
var States = []string{"starting", "running", "stopping", "stopped"}

type promMetrics struct {
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	connectionsRejected *prometheus.CounterVec
	activeConnections   prometheus.Gauge
	requestsTotal       *prometheus.CounterVec
	requestDuration     prometheus.Histogram
	bytesWritten        prometheus.Counter
	upgrades            prometheus.Counter
	state               *prometheus.GaugeVec
}

// NewPrometheus registers the server collectors in reg under the namespace.
func NewPrometheus(reg prometheus.Registerer, namespace string) Metrics {
	factory := promauto.With(reg)

	return &promMetrics{
		connectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted connections",
		}),
		connectionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_closed_total",
			Help:      "Total number of connections that left the server",
		}),
		connectionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Total number of connections closed right after accept",
		}, []string{"reason"}),
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Current number of open connections",
		}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of served requests by status code",
		}, []string{"code"}),
		requestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from a parsed request to a written response",
			Buckets:   prometheus.DefBuckets,
		}),
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_body_bytes_total",
			Help:      "Total bytes of response bodies written",
		}),
		upgrades: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upgrades_total",
			Help:      "Total number of connections handed over to an upgrader",
		}),
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Lifecycle state of the server, 1 for the current one",
		}, []string{"state"}),
	}
}

func (p *promMetrics) ConnectionAccepted() {
	p.connectionsAccepted.Inc()
}

func (p *promMetrics) ConnectionClosed() {
	p.connectionsClosed.Inc()
}

func (p *promMetrics) ConnectionRejected(reason string) {
	p.connectionsRejected.WithLabelValues(reason).Inc()
}

func (p *promMetrics) SetActiveConnections(n int) {
	p.activeConnections.Set(float64(n))
}

func (p *promMetrics) RecordRequest(code int, duration time.Duration) {
	p.requestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
	p.requestDuration.Observe(duration.Seconds())
}

func (p *promMetrics) RecordBytesWritten(n int64) {
	p.bytesWritten.Add(float64(n))
}

func (p *promMetrics) RecordUpgrade() {
	p.upgrades.Inc()
}

func (p *promMetrics) SetState(state string) {
	for _, s := range States {
		value := 0.
		if s == state {
			value = 1
		}

		p.state.WithLabelValues(s).Set(value)
	}
}
