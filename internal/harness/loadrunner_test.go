package harness_test

import (
	"context"
	"testing"
	"time"

	"membench/internal/harness"
	"membench/internal/slo"
	"membench/internal/testutil"
)

func TestRunLoadTestBasic(t *testing.T) {
	runner := harness.NewLoadRunner(nil, testutil.TestLogger())

	result, err := runner.RunLoadTest(context.Background(), "steady", 8,
		200*time.Millisecond, testutil.FixedLatencyOp(time.Millisecond))
	if err != nil {
		t.Fatalf("Load test failed: %v", err)
	}

	if result.SuccessCount == 0 {
		t.Fatal("Expected some successful operations")
	}
	if result.FailureCount != 0 {
		t.Errorf("Expected no failures, got %d", result.FailureCount)
	}
	if result.SuccessRate != 1.0 {
		t.Errorf("Expected success rate 1.0, got %v", result.SuccessRate)
	}
	if result.ThroughputOpsPerSec <= 0 {
		t.Errorf("Expected positive throughput, got %v", result.ThroughputOpsPerSec)
	}
	if result.Status != slo.StatusPass {
		t.Errorf("Expected pass, got %s (%s)", result.Status, result.Notes)
	}
	if result.NoData {
		t.Error("Expected NoData=false")
	}
}

func TestRunLoadTestWallClockThroughput(t *testing.T) {
	runner := harness.NewLoadRunner(nil, testutil.TestLogger())

	// 8 workers looping a 10ms operation for 200ms complete roughly
	// 8 * 20 = 160 operations. The latency-sum formula would claim only
	// ~100 ops/sec; wall-clock accounting must credit the parallelism.
	result, err := runner.RunLoadTest(context.Background(), "parallel", 8,
		200*time.Millisecond, testutil.FixedLatencyOp(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Load test failed: %v", err)
	}

	if result.ThroughputOpsPerSec < 200 {
		t.Errorf("Expected wall-clock throughput well above serial rate, got %v", result.ThroughputOpsPerSec)
	}
}

func TestRunLoadTestAbsorbsLowErrorRate(t *testing.T) {
	runner := harness.NewLoadRunner(nil, testutil.TestLogger())

	// Roughly 1% of calls fail; that sits inside every default tier budget.
	result, err := runner.RunLoadTest(context.Background(), "mostly-healthy", 10,
		200*time.Millisecond, testutil.FlakyOp(time.Millisecond, 100))
	if err != nil {
		t.Fatalf("Load test failed: %v", err)
	}

	if result.SuccessRate <= 0.95 {
		t.Errorf("Expected success rate above 0.95, got %v", result.SuccessRate)
	}
	if result.Status != slo.StatusPass {
		t.Errorf("Expected pass with a 1%% error rate, got %s (%s)", result.Status, result.Notes)
	}
	if result.SuccessCount+result.FailureCount == 0 {
		t.Error("Expected attempts to be recorded")
	}
}

func TestRunLoadTestAllFailuresIsNoData(t *testing.T) {
	runner := harness.NewLoadRunner(nil, testutil.TestLogger())

	result, err := runner.RunLoadTest(context.Background(), "dead-backend", 4,
		100*time.Millisecond, testutil.FailingOp("backend unavailable"))
	if err != nil {
		t.Fatalf("Load test returned a hard error for operation failures: %v", err)
	}

	if !result.NoData {
		t.Error("Expected NoData=true when every attempt fails")
	}
	if result.Status != slo.StatusFail {
		t.Errorf("Expected fail status, got %s", result.Status)
	}
	if result.SuccessRate != 0 {
		t.Errorf("Expected success rate 0, got %v", result.SuccessRate)
	}
	if result.P95LatencyMs != 0 {
		t.Errorf("Expected zeroed p95 alongside NoData, got %v", result.P95LatencyMs)
	}
}

func TestRunLoadTestCountsCircuitTrips(t *testing.T) {
	runner := harness.NewLoadRunner(nil, testutil.TestLogger())

	result, err := runner.RunLoadTest(context.Background(), "tripping", 4,
		100*time.Millisecond, testutil.CircuitTrippingOp(50))
	if err != nil {
		t.Fatalf("Load test failed: %v", err)
	}

	if result.CircuitBreakerTrips == 0 {
		t.Error("Expected circuit breaker errors to be tallied")
	}
	if result.CircuitBreakerTrips > result.FailureCount {
		t.Errorf("Circuit trips %d cannot exceed failures %d",
			result.CircuitBreakerTrips, result.FailureCount)
	}
	if result.SuccessCount == 0 {
		t.Error("Expected successes before the trip threshold")
	}
}

func TestRunLoadTestRejectsInvalidArgs(t *testing.T) {
	runner := harness.NewLoadRunner(nil, testutil.TestLogger())
	op := testutil.FixedLatencyOp(time.Millisecond)

	if _, err := runner.RunLoadTest(context.Background(), "bad", 0, time.Second, op); err != harness.ErrInvalidConcurrency {
		t.Errorf("Expected ErrInvalidConcurrency, got %v", err)
	}
	if _, err := runner.RunLoadTest(context.Background(), "bad", 4, 0, op); err != harness.ErrInvalidDuration {
		t.Errorf("Expected ErrInvalidDuration, got %v", err)
	}
	if len(runner.Results()) != 0 {
		t.Errorf("Expected no results after rejected runs, got %d", len(runner.Results()))
	}
}

func TestRunLoadTestRecoversPanic(t *testing.T) {
	runner := harness.NewLoadRunner(nil, testutil.TestLogger())

	result, err := runner.RunLoadTest(context.Background(), "panics", 2,
		50*time.Millisecond, testutil.PanickyOp("boom"))
	if err != nil {
		t.Fatalf("Load test failed: %v", err)
	}
	if !result.NoData {
		t.Error("Expected panicking operation to read as all-fail")
	}
	if result.FailureCount == 0 {
		t.Error("Expected panics to be counted as failures")
	}
}

func TestRunLoadTestAccumulatesResults(t *testing.T) {
	runner := harness.NewLoadRunner(nil, testutil.TestLogger())
	op := testutil.FixedLatencyOp(time.Millisecond)

	runner.RunLoadTest(context.Background(), "first", 2, 50*time.Millisecond, op)
	runner.RunLoadTest(context.Background(), "second", 2, 50*time.Millisecond, op)

	results := runner.Results()
	if len(results) != 2 {
		t.Fatalf("Expected 2 accumulated results, got %d", len(results))
	}
	if results[0].ScenarioName != "first" || results[1].ScenarioName != "second" {
		t.Error("Expected results in insertion order")
	}
}
