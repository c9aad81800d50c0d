package harness

import (
	"context"
	"sync"
	"time"

	"membench/internal/logging"
	"membench/internal/slo"
	"membench/internal/stats"
)

// LoadTestResult is the immutable record of one concurrency-tier load run.
type LoadTestResult struct {
	ScenarioName        string     `json:"scenario_name"`
	Concurrency         int        `json:"concurrency"`
	DurationMs          float64    `json:"duration_ms"`
	SuccessCount        int        `json:"success_count"`
	FailureCount        int        `json:"failure_count"`
	SuccessRate         float64    `json:"success_rate"`
	AvgLatencyMs        float64    `json:"avg_latency_ms"`
	P95LatencyMs        float64    `json:"p95_latency_ms"`
	P99LatencyMs        float64    `json:"p99_latency_ms"`
	ThroughputOpsPerSec float64    `json:"throughput_ops_per_sec"`
	MemoryPeakMb        float64    `json:"memory_peak_mb"`
	MemoryLeakMb        float64    `json:"memory_leak_mb"`
	CircuitBreakerTrips int        `json:"circuit_breaker_trips"`
	NoData              bool       `json:"no_data"`
	Status              slo.Status `json:"status"`
	Notes               string     `json:"notes"`
}

// LoadRunner launches flat pools of workers that loop an operation until a
// wall-clock deadline. It is a generator of load, not a rate-limited
// client: no queue, no backpressure, no per-worker rate limiting.
type LoadRunner struct {
	mu      sync.Mutex
	logger  *logging.Logger
	tiers   []slo.TierTarget
	results []LoadTestResult
}

// NewLoadRunner creates a load runner classifying against the given tier
// ladder. A nil ladder falls back to the defaults.
func NewLoadRunner(tiers []slo.TierTarget, logger *logging.Logger) *LoadRunner {
	if tiers == nil {
		tiers = slo.DefaultTierTargets()
	}
	return &LoadRunner{
		logger: logger,
		tiers:  tiers,
	}
}

// RunLoadTest launches concurrency workers simultaneously, each looping the
// operation until the deadline, and joins them at a single wait-all barrier
// before any aggregation. Each worker owns a private accumulator, so the
// hot path takes no locks. An in-flight call is allowed to finish after the
// deadline passes; the resulting bounded overrun (at most one operation's
// latency) is expected. The returned error covers configuration problems
// only; a breached SLO is reported through the result's status.
func (lr *LoadRunner) RunLoadTest(ctx context.Context, scenarioName string, concurrency int, duration time.Duration, op Operation) (LoadTestResult, error) {
	if concurrency <= 0 {
		return LoadTestResult{}, ErrInvalidConcurrency
	}
	if duration <= 0 {
		return LoadTestResult{}, ErrInvalidDuration
	}

	lr.logger.RunStart(ctx, "load", scenarioName, concurrency)

	memBefore := snapshotMemoryMB()
	sampler := startMemorySampler(50 * time.Millisecond)

	accs := make([]workerAccumulator, concurrency)
	deadline := time.Now().Add(duration)
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(acc *workerAccumulator) {
			defer wg.Done()
			for time.Now().Before(deadline) {
				callStart := time.Now()
				err := invoke(ctx, op)
				elapsedMs := float64(time.Since(callStart).Nanoseconds()) / 1e6
				if err != nil {
					acc.recordFailure(err, elapsedMs)
				} else {
					acc.recordSuccess(elapsedMs)
				}
			}
		}(&accs[i])
	}
	wg.Wait()
	wall := time.Since(start)

	peakMB := sampler.Stop()
	memAfter := snapshotMemoryMB()

	// Merging strictly after the join barrier is what makes the lock-free
	// hot path sound.
	latenciesMs, successes, failures, circuitTrips := mergeAccumulators(accs)
	summary := stats.Aggregate(latenciesMs, failures)

	result := LoadTestResult{
		ScenarioName:        scenarioName,
		Concurrency:         concurrency,
		DurationMs:          float64(duration.Milliseconds()),
		SuccessCount:        successes,
		FailureCount:        failures,
		SuccessRate:         1 - summary.ErrorRate,
		AvgLatencyMs:        summary.AvgLatencyMs,
		P95LatencyMs:        summary.P95LatencyMs,
		P99LatencyMs:        summary.P99LatencyMs,
		ThroughputOpsPerSec: stats.ThroughputWallClock(successes, float64(wall.Nanoseconds())/1e6),
		MemoryPeakMb:        peakMB,
		MemoryLeakMb:        memoryDeltaMB(memBefore, memAfter),
		CircuitBreakerTrips: circuitTrips,
		NoData:              summary.NoData,
	}
	if summary.TotalAttempts() == 0 {
		result.SuccessRate = 0
	}

	if summary.NoData {
		result.Status = slo.StatusFail
		result.Notes = "no successful samples; percentiles undefined"
	} else {
		tier := slo.TierFor(lr.tiers, concurrency)
		result.Status, result.Notes = slo.ClassifyTier(result.P95LatencyMs, summary.ErrorRate, tier)
	}

	lr.mu.Lock()
	lr.results = append(lr.results, result)
	lr.mu.Unlock()

	lr.logger.RunEnd(ctx, "load", scenarioName, string(result.Status), wall, int64(successes+failures))
	lr.logger.Performance(ctx, "load_throughput_ops", result.ThroughputOpsPerSec, "ops/sec", map[string]string{
		"scenario": scenarioName,
	})

	return result, nil
}

// Results returns a copy of the accumulated load-test results in insertion
// order.
func (lr *LoadRunner) Results() []LoadTestResult {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	out := make([]LoadTestResult, len(lr.results))
	copy(out, lr.results)
	return out
}
