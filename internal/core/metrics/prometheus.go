package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cns"

// PrometheusReporter 基于 Prometheus 的 Reporter
type PrometheusReporter struct {
	bindings prometheus.Gauge
	leases   prometheus.Gauge
	pending  prometheus.Gauge
	sessions prometheus.Gauge

	requests *prometheus.CounterVec
	rejected *prometheus.CounterVec
	linkLost prometheus.Counter
	panics   prometheus.Counter
	dropped  prometheus.Counter
}

var _ Reporter = (*PrometheusReporter)(nil)

// NewPrometheusReporter 创建并注册指标
func NewPrometheusReporter(reg prometheus.Registerer) (*PrometheusReporter, error) {
	r := &PrometheusReporter{
		bindings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "server", Name: "bindings",
			Help: "Number of live name bindings.",
		}),
		leases: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "server", Name: "leases",
			Help: "Number of outstanding leases.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "server", Name: "pending_resolves",
			Help: "Number of queued resolve requests.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "server", Name: "sessions",
			Help: "Number of logged-on clients.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server", Name: "requests_total",
			Help: "Requests handled, by kind.",
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server", Name: "rejected_total",
			Help: "Requests answered negatively, by kind.",
		}, []string{"kind"}),
		linkLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server", Name: "link_lost_total",
			Help: "Client links lost.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server", Name: "handler_panics_total",
			Help: "Recovered handler panics.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server", Name: "replies_dropped_total",
			Help: "Replies dropped because the client's send queue was full.",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.bindings, r.leases, r.pending, r.sessions,
		r.requests, r.rejected, r.linkLost, r.panics, r.dropped,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetTables 实现 Reporter
func (r *PrometheusReporter) SetTables(t TableSizes) {
	r.bindings.Set(float64(t.Bindings))
	r.leases.Set(float64(t.Leases))
	r.pending.Set(float64(t.Pending))
	r.sessions.Set(float64(t.Sessions))
}

// RequestHandled 实现 Reporter
func (r *PrometheusReporter) RequestHandled(kind string) {
	r.requests.WithLabelValues(kind).Inc()
}

// RequestRejected 实现 Reporter
func (r *PrometheusReporter) RequestRejected(kind string) {
	r.rejected.WithLabelValues(kind).Inc()
}

// LinkLost 实现 Reporter
func (r *PrometheusReporter) LinkLost() {
	r.linkLost.Inc()
}

// HandlerPanic 实现 Reporter
func (r *PrometheusReporter) HandlerPanic() {
	r.panics.Inc()
}

// ReplyDropped 实现 Reporter
func (r *PrometheusReporter) ReplyDropped() {
	r.dropped.Inc()
}
