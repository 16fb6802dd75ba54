package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EntriesLogged   *prometheus.CounterVec
	EntriesFlushed  prometheus.Counter
	EntriesFallback prometheus.Counter
	EntriesRequeued prometheus.Counter
	FlushFailures   prometheus.Counter
	BufferSize      prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		EntriesLogged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritrail_audit_entries_logged_total",
			Help: "Total number of audit entries logged",
		}, []string{"severity"}),
		EntriesFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritrail_audit_entries_flushed_total",
			Help: "Total number of audit entries flushed to the primary sink",
		}),
		EntriesFallback: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritrail_audit_entries_fallback_total",
			Help: "Total number of audit entries written to a fallback sink",
		}),
		EntriesRequeued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritrail_audit_entries_requeued_total",
			Help: "Total number of audit entries requeued after a failed flush",
		}),
		FlushFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritrail_audit_flush_failures_total",
			Help: "Total number of flush cycles where every sink failed",
		}),
		BufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "veritrail_audit_buffer_size",
			Help: "Current number of audit entries in the in-memory buffer",
		}),
	}
}

func (m *Metrics) ObserveLogged(severity string) {
	m.EntriesLogged.WithLabelValues(severity).Inc()
}

func (m *Metrics) ObserveFlush(n int) {
	m.EntriesFlushed.Add(float64(n))
}

func (m *Metrics) ObserveFallback(n int) {
	m.EntriesFallback.Add(float64(n))
}

func (m *Metrics) ObserveRequeue(n int) {
	m.EntriesRequeued.Add(float64(n))
}

func (m *Metrics) ObserveFlushFailure() {
	m.FlushFailures.Inc()
}

func (m *Metrics) SetBufferSize(n int) {
	m.BufferSize.Set(float64(n))
}
