package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the counters and gauges the producer and workers emit.
// Built against an explicit Registerer so tests can run isolated instances;
// binaries pass prometheus.DefaultRegisterer and expose via promhttp.
type Metrics struct {
	MessagesProduced  prometheus.Counter
	MessagesProcessed *prometheus.CounterVec
	StreamCleanup     prometheus.Counter
	StreamCleanupOps  prometheus.Counter
	StreamLength      prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesProduced: factory.NewCounter(prometheus.CounterOpts{
			Name: "messages_produced_total",
			Help: "The total number of messages produced to the stream",
		}),
		MessagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_processed_total",
			Help: "The total number of messages processed, per consumer",
		}, []string{"consumer_id"}),
		StreamCleanup: factory.NewCounter(prometheus.CounterOpts{
			Name: "stream_cleanup_total",
			Help: "The total number of stream entries discarded by retention trims",
		}),
		StreamCleanupOps: factory.NewCounter(prometheus.CounterOpts{
			Name: "stream_cleanup_operations_total",
			Help: "The total number of retention checks performed",
		}),
		StreamLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stream_length_current",
			Help: "The current number of entries in the stream",
		}),
	}
}
