package endpoint

import (
	"math"
	"sync"
	"time"

	"github.com/hupe1980/nodemesh/core"
)

// Statistic kinds reported in a core.MetricsMessage.
const (
	StatAverage     = "average"
	StatMinimum     = "minimum"
	StatMaximum     = "maximum"
	StatStdDev      = "stddev"
	StatSampleCount = "sample_count"
)

// Metric sources reported by a StatisticsCollector.
const (
	MetricMessagePeriod = "message_period"
	MetricMessageAge    = "message_age"
)

// StatisticsCollector measures the inter-arrival period and age of the
// messages of one subscription over a window.
type StatisticsCollector struct {
	node  string
	topic string
	clock core.Clock

	mu          sync.Mutex
	windowStart time.Time
	lastArrival time.Time
	period      runningStats
	age         runningStats
}

// NewStatisticsCollector starts a window at c.Now().
func NewStatisticsCollector(node, topic string, c core.Clock) *StatisticsCollector {
	return &StatisticsCollector{node: node, topic: topic, clock: c, windowStart: c.Now()}
}

// Observe records one received message.
func (s *StatisticsCollector) Observe(info core.MessageInfo) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastArrival.IsZero() {
		s.period.add(msec(now.Sub(s.lastArrival)))
	}
	s.lastArrival = now
	if !info.SourceTimestamp.IsZero() {
		s.age.add(msec(now.Sub(info.SourceTimestamp)))
	}
}

// Snapshot returns the metrics of the current window and starts a new one.
func (s *StatisticsCollector) Snapshot() []core.MetricsMessage {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.MetricsMessage{
		s.metrics(MetricMessagePeriod, s.period, now),
		s.metrics(MetricMessageAge, s.age, now),
	}
	s.windowStart = now
	s.period = runningStats{}
	s.age = runningStats{}
	return out
}

func (s *StatisticsCollector) metrics(source string, r runningStats, now time.Time) core.MetricsMessage {
	return core.MetricsMessage{
		MeasurementSource: s.node,
		MetricsSource:     source,
		Unit:              "ms",
		WindowStart:       s.windowStart,
		WindowStop:        now,
		Statistics: []core.StatisticDataPoint{
			{Kind: StatAverage, Value: r.mean()},
			{Kind: StatMinimum, Value: r.minimum()},
			{Kind: StatMaximum, Value: r.maximum()},
			{Kind: StatStdDev, Value: r.stddev()},
			{Kind: StatSampleCount, Value: float64(r.n)},
		},
	}
}

// runningStats is Welford's online mean and variance.
type runningStats struct {
	n        int
	avg, m2  float64
	min, max float64
}

func (r *runningStats) add(x float64) {
	r.n++
	if r.n == 1 {
		r.min, r.max = x, x
	}
	r.min = math.Min(r.min, x)
	r.max = math.Max(r.max, x)
	d := x - r.avg
	r.avg += d / float64(r.n)
	r.m2 += d * (x - r.avg)
}

func (r runningStats) mean() float64 {
	if r.n == 0 {
		return math.NaN()
	}
	return r.avg
}

func (r runningStats) minimum() float64 {
	if r.n == 0 {
		return math.NaN()
	}
	return r.min
}

func (r runningStats) maximum() float64 {
	if r.n == 0 {
		return math.NaN()
	}
	return r.max
}

func (r runningStats) stddev() float64 {
	if r.n == 0 {
		return math.NaN()
	}
	return math.Sqrt(r.m2 / float64(r.n))
}

func msec(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
