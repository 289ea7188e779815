package authflow

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one controller counter.
type MetricID uint16

const (
	// MetricEmailLookup counts email-step lookups sent to the store.
	MetricEmailLookup MetricID = iota
	// MetricSocialSignIn counts social sign-ins.
	MetricSocialSignIn
	// MetricSignInSuccess counts verified passwords.
	MetricSignInSuccess
	// MetricSignInFailure counts rejected passwords.
	MetricSignInFailure
	// MetricSignUpSuccess counts created profiles.
	MetricSignUpSuccess
	// MetricSignUpConflict counts sign-ups redirected because the email was taken.
	MetricSignUpConflict
	MetricTwoFactorSuccess
	MetricTwoFactorFailure
	MetricTwoFactorSkipped
	MetricCodeResent
	MetricResetRequest
	MetricResetSuccess
	MetricResetFailure
	MetricLogout
	// MetricEventRejected counts events the current step does not accept.
	MetricEventRejected
	// MetricTransitionInFlight counts dispatches refused while another transition ran.
	MetricTransitionInFlight
	// MetricEffectFailure counts store effects that failed after commit.
	MetricEffectFailure
	// MetricTransitionLatency is the only histogram-backed metric.
	MetricTransitionLatency
	metricIDCount
)

// MetricCount is the number of defined metric IDs.
const MetricCount = int(metricIDCount)

// LatencyBuckets are the inclusive upper bounds of the transition latency
// histogram. One more bucket catches everything slower.
var LatencyBuckets = []time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

// LatencyBucketCount is len(LatencyBuckets) plus the overflow bucket.
const LatencyBucketCount = 8

const cacheLineSize = 64

// paddedCounter keeps hot counters on separate cache lines.
type paddedCounter struct {
	atomic.Uint64
	_ [cacheLineSize - 8]byte
}

type latencyHistogram struct {
	buckets [LatencyBucketCount]atomic.Uint64
	sum     atomic.Int64
}

// Metrics is a fixed set of lock-free counters. A nil or disabled Metrics
// accepts every call and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histograms hold
// per-bucket (not cumulative) counts; Sums holds the total observed time of
// each histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	Sums       map[MetricID]time.Duration
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricTransitionLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d for MetricTransitionLatency. Other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricTransitionLatency {
		return
	}
	m.latency.buckets[bucketIndex(d)].Add(1)
	m.latency.sum.Add(int64(d))
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
		Sums:       map[MetricID]time.Duration{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id != MetricTransitionLatency {
			s.Counters[id] = m.counters[id].Load()
		}
	}

	if m.enableLatency {
		buckets := make([]uint64, LatencyBucketCount)
		for i := range buckets {
			buckets[i] = m.latency.buckets[i].Load()
		}
		s.Histograms[MetricTransitionLatency] = buckets
		s.Sums[MetricTransitionLatency] = time.Duration(m.latency.sum.Load())
	}
	return s
}

// bucketIndex truncates d to whole milliseconds before comparing, so 5.9ms
// still lands in the 5ms bucket.
func bucketIndex(d time.Duration) int {
	d = d.Truncate(time.Millisecond)
	for i, bound := range LatencyBuckets {
		if d <= bound {
			return i
		}
	}
	return len(LatencyBuckets)
}
