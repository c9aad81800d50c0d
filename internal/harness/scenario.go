package harness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"membench/internal/logging"
	"membench/internal/slo"
	"membench/internal/stats"
)

// Step is one named operation inside a scenario iteration.
type Step struct {
	Name string
	Op   Operation
}

// ScenarioResult is the immutable record of one scenario workflow run.
type ScenarioResult struct {
	ScenarioName        string     `json:"scenario_name"`
	Concurrency         int        `json:"concurrency"`
	Iterations          int        `json:"iterations"`
	Steps               []string   `json:"steps"`
	SuccessCount        int        `json:"success_count"`
	FailureCount        int        `json:"failure_count"`
	SuccessRate         float64    `json:"success_rate"`
	AvgLatencyMs        float64    `json:"avg_latency_ms"`
	P95LatencyMs        float64    `json:"p95_latency_ms"`
	P99LatencyMs        float64    `json:"p99_latency_ms"`
	ThroughputOpsPerSec float64    `json:"throughput_ops_per_sec"`
	PassThreshold       float64    `json:"pass_threshold"`
	NoData              bool       `json:"no_data"`
	Status              slo.Status `json:"status"`
	Notes               string     `json:"notes"`
}

// Workflow composes several operation calls into one logical iteration,
// modelling realistic multi-step behavior (remember -> recall -> store ->
// health-check) rather than hammering a single endpoint.
type Workflow struct {
	mu      sync.Mutex
	name    string
	steps   []Step
	logger  *logging.Logger
	results []ScenarioResult
}

// NewWorkflow creates a scenario workflow from an ordered list of steps.
func NewWorkflow(name string, logger *logging.Logger, steps ...Step) *Workflow {
	return &Workflow{
		name:   name,
		steps:  steps,
		logger: logger,
	}
}

// Run drives the full step sequence through concurrency workers, each
// repeating it for a fixed iteration count. Any step error fails the whole
// iteration; the worker proceeds to the next iteration with no retry and no
// partial credit. The scenario passes when successCount strictly exceeds
// concurrency * iterations * passThreshold.
func (w *Workflow) Run(ctx context.Context, concurrency, iterations int, passThreshold float64) (ScenarioResult, error) {
	if len(w.steps) == 0 {
		return ScenarioResult{}, ErrNoSteps
	}
	if concurrency <= 0 {
		return ScenarioResult{}, ErrInvalidConcurrency
	}
	if iterations <= 0 {
		return ScenarioResult{}, ErrInvalidSampleSize
	}
	if passThreshold <= 0 || passThreshold >= 1 {
		return ScenarioResult{}, ErrInvalidThreshold
	}

	w.logger.RunStart(ctx, "scenario", w.name, concurrency)

	accs := make([]workerAccumulator, concurrency)
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(acc *workerAccumulator) {
			defer wg.Done()
			for iter := 0; iter < iterations; iter++ {
				iterStart := time.Now()
				var iterErr error
				for _, step := range w.steps {
					if err := invoke(ctx, step.Op); err != nil {
						iterErr = err
						break
					}
				}
				elapsedMs := float64(time.Since(iterStart).Nanoseconds()) / 1e6
				if iterErr != nil {
					acc.recordFailure(iterErr, elapsedMs)
				} else {
					acc.recordSuccess(elapsedMs)
				}
			}
		}(&accs[i])
	}
	wg.Wait()
	wall := time.Since(start)

	latenciesMs, successes, failures, _ := mergeAccumulators(accs)
	summary := stats.Aggregate(latenciesMs, failures)

	stepNames := make([]string, len(w.steps))
	for i, s := range w.steps {
		stepNames[i] = s.Name
	}

	result := ScenarioResult{
		ScenarioName:        w.name,
		Concurrency:         concurrency,
		Iterations:          iterations,
		Steps:               stepNames,
		SuccessCount:        successes,
		FailureCount:        failures,
		SuccessRate:         1 - summary.ErrorRate,
		AvgLatencyMs:        summary.AvgLatencyMs,
		P95LatencyMs:        summary.P95LatencyMs,
		P99LatencyMs:        summary.P99LatencyMs,
		ThroughputOpsPerSec: stats.ThroughputWallClock(successes, float64(wall.Nanoseconds())/1e6),
		PassThreshold:       passThreshold,
		NoData:              summary.NoData,
	}

	required := float64(concurrency) * float64(iterations) * passThreshold
	switch {
	case summary.NoData:
		result.Status = slo.StatusFail
		result.Notes = "no successful iterations; percentiles undefined"
	case float64(successes) > required:
		result.Status = slo.StatusPass
	default:
		result.Status = slo.StatusFail
		result.Notes = fmt.Sprintf("successful iterations %d did not exceed required %.1f", successes, required)
	}

	w.mu.Lock()
	w.results = append(w.results, result)
	w.mu.Unlock()

	w.logger.RunEnd(ctx, "scenario", w.name, string(result.Status), wall, int64(successes+failures))

	return result, nil
}

// Results returns a copy of the accumulated scenario results in insertion
// order.
func (w *Workflow) Results() []ScenarioResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]ScenarioResult, len(w.results))
	copy(out, w.results)
	return out
}
