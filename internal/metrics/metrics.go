package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported on /metrics. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	Registry        *prometheus.Registry
	CommentOps      *prometheus.CounterVec
	ThreadRenders   *prometheus.CounterVec
	ThreadRenderErr *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CommentOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkvault",
			Name:      "comment_operations_total",
			Help:      "Comment mutations by operation and result.",
		}, []string{"op", "result"}),
		ThreadRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkvault",
			Name:      "thread_renders_total",
			Help:      "Server-rendered comment threads by entity kind.",
		}, []string{"kind"}),
		ThreadRenderErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkvault",
			Name:      "thread_render_failures_total",
			Help:      "Comment thread loads that surfaced a failure notice.",
		}, []string{"kind"}),
	}
	m.Registry.MustRegister(m.CommentOps, m.ThreadRenders, m.ThreadRenderErr)
	return m
}

// ObserveOp counts one comment operation. A nil receiver is a no-op.
func (m *Metrics) ObserveOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CommentOps.WithLabelValues(op, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}

// ObserveRender counts one server-rendered thread and whether it surfaced a
// failure. A nil receiver is a no-op.
func (m *Metrics) ObserveRender(kind string, failed bool) {
	if m == nil {
		return
	}
	m.ThreadRenders.WithLabelValues(kind).Inc()
	if failed {
		m.ThreadRenderErr.WithLabelValues(kind).Inc()
	}
}
