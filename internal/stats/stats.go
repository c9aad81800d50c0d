package stats

import (
	"errors"
	"math"
	"sort"
)

// ErrNoData indicates that a run produced zero successful samples, so
// percentile and average statistics are undefined. Callers must surface
// this explicitly instead of reporting zeroed latencies, because a 0ms
// p95 would misread as a passing result.
var ErrNoData = errors.New("stats: no successful samples")

// Sample records the outcome of a single operation attempt. Samples are
// created per call and consumed by aggregation within the same run; they
// are never persisted on their own.
type Sample struct {
	DurationMs  float64 `json:"duration_ms"`
	Success     bool    `json:"success"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// Summary contains the aggregate statistics of one run.
type Summary struct {
	Successes    int     `json:"successes"`
	Failures     int     `json:"failures"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MinLatencyMs float64 `json:"min_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
	ErrorRate    float64 `json:"error_rate"`
	NoData       bool    `json:"no_data"`
}

// TotalAttempts returns the number of attempts accounted for by the summary.
func (s Summary) TotalAttempts() int {
	return s.Successes + s.Failures
}

// Percentile returns the latency below which the given fraction of samples
// fall, using index = floor(len*p) clamped to [0, len-1]. The input slice
// must already be sorted ascending.
func Percentile(p float64, sorted []float64) (float64, error) {
	if len(sorted) == 0 {
		return 0, ErrNoData
	}
	idx := int(math.Floor(float64(len(sorted)) * p))
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx], nil
}

// Aggregate computes run statistics from the latencies of successful
// attempts plus a failure count. It is a pure function: the input slice is
// copied before sorting, so re-running it on a frozen sample set yields
// identical results regardless of sample order.
func Aggregate(successLatenciesMs []float64, failures int) Summary {
	s := Summary{
		Successes: len(successLatenciesMs),
		Failures:  failures,
	}

	total := s.Successes + s.Failures
	if total > 0 {
		s.ErrorRate = float64(failures) / float64(total)
	}

	if s.Successes == 0 {
		// Percentiles are undefined; leave latencies zeroed and flag it.
		s.NoData = true
		return s
	}

	sorted := make([]float64, len(successLatenciesMs))
	copy(sorted, successLatenciesMs)
	sort.Float64s(sorted)

	var sum float64
	for _, l := range sorted {
		sum += l
	}
	s.AvgLatencyMs = sum / float64(len(sorted))
	s.MinLatencyMs = sorted[0]
	s.MaxLatencyMs = sorted[len(sorted)-1]
	s.P50LatencyMs, _ = Percentile(0.50, sorted)
	s.P95LatencyMs, _ = Percentile(0.95, sorted)
	s.P99LatencyMs, _ = Percentile(0.99, sorted)

	return s
}

// AggregateSamples partitions raw samples into success latencies and a
// failure count, then aggregates them. Convenience for callers that record
// per-attempt Sample values instead of keeping the split themselves.
func AggregateSamples(samples []Sample) Summary {
	latencies := make([]float64, 0, len(samples))
	failures := 0
	for _, s := range samples {
		if s.Success {
			latencies = append(latencies, s.DurationMs)
		} else {
			failures++
		}
	}
	return Aggregate(latencies, failures)
}

// ThroughputSerial computes operations per second for a sequential run,
// where total time is the sum of the measured latencies.
func ThroughputSerial(successes int, successLatenciesMs []float64) float64 {
	var sum float64
	for _, l := range successLatenciesMs {
		sum += l
	}
	if sum <= 0 {
		return 0
	}
	return float64(successes) / (sum / 1000.0)
}

// ThroughputWallClock computes operations per second for a concurrent run.
// Parallel execution is wall-clock bound, not latency-sum bound, so every
// concurrent runner uses this formula.
func ThroughputWallClock(successes int, wallClockMs float64) float64 {
	if wallClockMs <= 0 {
		return 0
	}
	return float64(successes) / (wallClockMs / 1000.0)
}
