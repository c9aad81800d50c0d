package harness

import (
	"context"
	"sync"
	"time"

	"membench/internal/logging"
	"membench/internal/slo"
	"membench/internal/stats"
)

// OperationBenchmark is the immutable record of one sequential benchmark
// run. It is created once at run completion, appended to the owning
// runner's list and never mutated afterwards.
type OperationBenchmark struct {
	OperationName       string       `json:"operation_name"`
	Layer               string       `json:"layer"`
	Category            slo.Category `json:"category"`
	SampleSize          int          `json:"sample_size"`
	AvgLatencyMs        float64      `json:"avg_latency_ms"`
	P50LatencyMs        float64      `json:"p50_latency_ms"`
	P95LatencyMs        float64      `json:"p95_latency_ms"`
	P99LatencyMs        float64      `json:"p99_latency_ms"`
	ThroughputOpsPerSec float64      `json:"throughput_ops_per_sec"`
	MemoryUsageMb       float64      `json:"memory_usage_mb"`
	ErrorRate           float64      `json:"error_rate"`
	NoData              bool         `json:"no_data"`
	Status              slo.Status   `json:"status"`
	Notes               string       `json:"notes"`
}

// RunSummary aggregates a runner's accumulated benchmark results.
type RunSummary struct {
	Total         int     `json:"total"`
	Passed        int     `json:"passed"`
	Warned        int     `json:"warned"`
	Failed        int     `json:"failed"`
	AvgP95Ms      float64 `json:"avg_p95_ms"`
	TotalMemoryMb float64 `json:"total_memory_mb"`
}

// Runner executes single-operation benchmarks sequentially and keeps a
// run-scoped list of their results. The list is appended to exactly once
// per completed run, after all measurement is done.
type Runner struct {
	mu      sync.Mutex
	logger  *logging.Logger
	targets map[slo.Category]slo.CategoryTarget
	warmup  time.Duration
	results []OperationBenchmark
}

// NewRunner creates a benchmark runner classifying against the given
// category targets. A nil target map falls back to the defaults.
func NewRunner(targets map[slo.Category]slo.CategoryTarget, warmup time.Duration, logger *logging.Logger) *Runner {
	if targets == nil {
		targets = slo.DefaultCategoryTargets()
	}
	return &Runner{
		logger:  logger,
		targets: targets,
		warmup:  warmup,
	}
}

// Benchmark runs the operation sequentially exactly sampleSize times on the
// calling goroutine, deliberately uncontended so the measured latency
// reflects the operation alone. Failures are counted without aborting; the
// run always completes its configured sample size so results stay
// comparable across runs. A failing benchmark is reported through the
// result's status, not through the returned error, which covers
// configuration problems only.
func (r *Runner) Benchmark(ctx context.Context, name, layer string, category slo.Category, op Operation, sampleSize int) (OperationBenchmark, error) {
	if sampleSize <= 0 {
		return OperationBenchmark{}, ErrInvalidSampleSize
	}

	r.logger.RunStart(ctx, "benchmark", name, 1)

	if r.warmup > 0 {
		warmupDeadline := time.Now().Add(r.warmup)
		for time.Now().Before(warmupDeadline) {
			_ = invoke(ctx, op)
		}
	}

	memBefore := snapshotMemoryMB()

	latenciesMs := make([]float64, 0, sampleSize)
	failures := 0
	start := time.Now()
	for i := 0; i < sampleSize; i++ {
		callStart := time.Now()
		err := invoke(ctx, op)
		elapsedMs := float64(time.Since(callStart).Nanoseconds()) / 1e6
		if err != nil {
			failures++
		} else {
			latenciesMs = append(latenciesMs, elapsedMs)
		}
	}
	wall := time.Since(start)

	memAfter := snapshotMemoryMB()

	summary := stats.Aggregate(latenciesMs, failures)
	result := OperationBenchmark{
		OperationName:       name,
		Layer:               layer,
		Category:            category,
		SampleSize:          sampleSize,
		AvgLatencyMs:        summary.AvgLatencyMs,
		P50LatencyMs:        summary.P50LatencyMs,
		P95LatencyMs:        summary.P95LatencyMs,
		P99LatencyMs:        summary.P99LatencyMs,
		ThroughputOpsPerSec: stats.ThroughputSerial(summary.Successes, latenciesMs),
		MemoryUsageMb:       memoryDeltaMB(memBefore, memAfter),
		ErrorRate:           summary.ErrorRate,
		NoData:              summary.NoData,
	}

	if summary.NoData {
		result.Status = slo.StatusFail
		result.Notes = "no successful samples; percentiles undefined"
	} else {
		target, ok := r.targets[category]
		if !ok {
			target = slo.DefaultCategoryTargets()[slo.CategoryRead]
		}
		result.Status, result.Notes = slo.Classify(result.P95LatencyMs, result.ErrorRate, target)
	}

	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()

	r.logger.RunEnd(ctx, "benchmark", name, string(result.Status), wall, int64(sampleSize))
	r.logger.Performance(ctx, "benchmark_p95_ms", result.P95LatencyMs, "ms", map[string]string{"operation": name})

	return result, nil
}

// Results returns a copy of the accumulated benchmark results in insertion
// order.
func (r *Runner) Results() []OperationBenchmark {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]OperationBenchmark, len(r.results))
	copy(out, r.results)
	return out
}

// Summary computes pass/warn/fail counts, average p95 and total measured
// memory across all accumulated results.
func (r *Runner) Summary() RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := RunSummary{Total: len(r.results)}
	var p95Sum float64
	for _, res := range r.results {
		switch res.Status {
		case slo.StatusPass:
			s.Passed++
		case slo.StatusWarn:
			s.Warned++
		default:
			s.Failed++
		}
		p95Sum += res.P95LatencyMs
		s.TotalMemoryMb += res.MemoryUsageMb
	}
	if s.Total > 0 {
		s.AvgP95Ms = p95Sum / float64(s.Total)
	}
	return s
}
