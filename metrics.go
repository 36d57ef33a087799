package quorumgate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID uint16

const (
	// MetricValidationSuccess is an exported constant or variable used by the token engine.
	MetricValidationSuccess MetricID = iota
	// MetricValidationFailure is an exported constant or variable used by the token engine.
	MetricValidationFailure
	// MetricRequestRejected is an exported constant or variable used by the token engine.
	MetricRequestRejected
	// MetricCheckTimeout is an exported constant or variable used by the token engine.
	MetricCheckTimeout
	// MetricCheckFailure is an exported constant or variable used by the token engine.
	MetricCheckFailure
	// MetricTokenIssued is an exported constant or variable used by the token engine.
	MetricTokenIssued
	// MetricTokenRejected is an exported constant or variable used by the token engine.
	MetricTokenRejected
	// MetricEmergencyTokenIssued is an exported constant or variable used by the token engine.
	MetricEmergencyTokenIssued
	// MetricEmergencyTokenDenied is an exported constant or variable used by the token engine.
	MetricEmergencyTokenDenied
	// MetricTokenVerifySuccess is an exported constant or variable used by the token engine.
	MetricTokenVerifySuccess
	// MetricTokenVerifyFailure is an exported constant or variable used by the token engine.
	MetricTokenVerifyFailure
	// MetricKeyRotation is an exported constant or variable used by the token engine.
	MetricKeyRotation
	// MetricDedupeHit is an exported constant or variable used by the token engine.
	MetricDedupeHit
	// MetricDedupeMiss is an exported constant or variable used by the token engine.
	MetricDedupeMiss
	// MetricValidateLatency is an exported constant or variable used by the token engine.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters and optional latency histograms. All
// operations are allocation-free on the write path.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether the metrics system records anything at all.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample for the validate histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a point-in-time deep copy of all counters and, when
// latency histograms are enabled, the validate latency buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
