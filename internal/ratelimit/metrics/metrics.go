package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksAllowed *prometheus.CounterVec
	ChecksDenied  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		ChecksAllowed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritrail_ratelimit_checks_allowed_total",
			Help: "Total number of rate limit checks that were allowed",
		}, []string{"profile"}),
		ChecksDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritrail_ratelimit_checks_denied_total",
			Help: "Total number of rate limit checks that were denied",
		}, []string{"profile"}),
	}
}

func (m *Metrics) IncrementAllowed(profile string) {
	m.ChecksAllowed.WithLabelValues(profile).Inc()
}

func (m *Metrics) IncrementDenied(profile string) {
	m.ChecksDenied.WithLabelValues(profile).Inc()
}
