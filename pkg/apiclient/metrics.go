package apiclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the client does. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	attempts *prometheus.HistogramVec
	retries  prometheus.Counter
	reauths  *prometheus.CounterVec
}

// NewMetrics registers the client's collectors with reg. A nil reg creates
// unregistered collectors, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cognify",
			Subsystem: "apiclient",
			Name:      "requests_total",
			Help:      "Requests executed, by method and outcome.",
		}, []string{"method", "outcome"}),
		attempts: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cognify",
			Subsystem: "apiclient",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of individual HTTP attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cognify",
			Subsystem: "apiclient",
			Name:      "retries_total",
			Help:      "Attempts repeated after a server or network failure.",
		}),
		reauths: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cognify",
			Subsystem: "apiclient",
			Name:      "reauth_total",
			Help:      "Credential renewals triggered by a 401, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) observeRequest(method string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) observeAttempt(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) observeReauth(renewed bool) {
	if m == nil {
		return
	}
	result := "failed"
	if renewed {
		result = "renewed"
	}
	m.reauths.WithLabelValues(result).Inc()
}
