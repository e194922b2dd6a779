package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the bot.
type Metrics struct {
	MessagesTotal      *prometheus.CounterVec
	QuotaDenials       prometheus.Counter
	LLMRequests        *prometheus.CounterVec
	LLMRequestSeconds  prometheus.Histogram
	AdminNotifications *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers the instruments on reg; tests pass a
// fresh registry so repeated construction does not collide.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Handled inbound messages by outcome.",
		}, []string{"outcome"}),
		QuotaDenials: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_denied_total",
			Help:      "Messages rejected because the sender's demo quota was exhausted.",
		}),
		LLMRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM requests by provider and status.",
		}, []string{"provider", "status"}),
		LLMRequestSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_seconds",
			Help:      "LLM request latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 120},
		}),
		AdminNotifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_notifications_total",
			Help:      "Quota-exhaustion admin notifications by status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveLLMRequest(d time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestSeconds.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
