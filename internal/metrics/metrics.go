// Package metrics exposes the decoder's Prometheus collectors: frame
// attempt/outcome counters, the live WDS threshold gauge, tick-sync
// latency, and warning counts, registered the way the rest of this
// codebase's ancestry registers its own gauges and counters.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors holds every metric the decoder and encoder publish.
type Collectors struct {
	framesAttempted prometheus.Counter
	decodesByError  *prometheus.CounterVec
	thresholdLevel  prometheus.Gauge
	syncLockLatency prometheus.Histogram
	dstWarnings     prometheus.Counter
	leapWarnings    prometheus.Counter
}

// New registers a fresh set of collectors against the default registry.
func New() *Collectors {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers against an explicit registerer, so tests can
// use a scratch prometheus.NewRegistry() instead of colliding with other
// tests on the global default registry.
func NewWithRegisterer(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		framesAttempted: factory.NewCounter(prometheus.CounterOpts{
			Name: "srcclock_frames_attempted_total",
			Help: "Total number of SRC frame decode attempts started.",
		}),
		decodesByError: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "srcclock_decode_outcomes_total",
				Help: "SRC frame decode outcomes, labelled by error code.",
			},
			[]string{"error_code"},
		),
		thresholdLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "srcclock_wds_threshold_linear",
			Help: "Current Window Decision System decision threshold (linear power).",
		}),
		syncLockLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "srcclock_sync_lock_latency_seconds",
			Help:    "Wall-clock time spent acquiring tick-train phase lock.",
			Buckets: prometheus.DefBuckets,
		}),
		dstWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "srcclock_dst_change_warnings_total",
			Help: "Number of decoded frames carrying a pending DST change warning.",
		}),
		leapWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "srcclock_leap_second_warnings_total",
			Help: "Number of decoded frames carrying a non-zero leap-second warning.",
		}),
	}
}

// FrameAttempted records the start of one decode attempt.
func (c *Collectors) FrameAttempted() {
	c.framesAttempted.Inc()
}

// DecodeOutcome records the error code a decode attempt finished with.
func (c *Collectors) DecodeOutcome(code int) {
	c.decodesByError.WithLabelValues(strconv.Itoa(code)).Inc()
}

// SetThreshold records the decoder's current WDS threshold.
func (c *Collectors) SetThreshold(linear float64) {
	c.thresholdLevel.Set(linear)
}

// ObserveSyncLockLatency records how long tick-phase acquisition took.
func (c *Collectors) ObserveSyncLockLatency(seconds float64) {
	c.syncLockLatency.Observe(seconds)
}

// RecordDSTWarning increments the pending-DST-change counter.
func (c *Collectors) RecordDSTWarning() {
	c.dstWarnings.Inc()
}

// RecordLeapWarning increments the non-zero-leap-second counter.
func (c *Collectors) RecordLeapWarning() {
	c.leapWarnings.Inc()
}

// Handler returns the promhttp handler serving the default Prometheus
// registry, which cmd/srcclock mounts at /metrics on metrics.listen.
func Handler() http.Handler {
	return promhttp.Handler()
}
