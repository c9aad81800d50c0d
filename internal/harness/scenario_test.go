package harness_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"membench/internal/harness"
	"membench/internal/slo"
	"membench/internal/testutil"
)

func TestWorkflowRunAllStepsSucceed(t *testing.T) {
	workflow := harness.NewWorkflow("remember-recall", testutil.TestLogger(),
		harness.Step{Name: "remember", Op: testutil.FixedLatencyOp(time.Millisecond)},
		harness.Step{Name: "recall", Op: testutil.FixedLatencyOp(time.Millisecond)},
	)

	result, err := workflow.Run(context.Background(), 10, 5, 0.95)
	if err != nil {
		t.Fatalf("Scenario failed: %v", err)
	}

	if result.SuccessCount != 50 {
		t.Errorf("Expected 50 successful iterations, got %d", result.SuccessCount)
	}
	if result.FailureCount != 0 {
		t.Errorf("Expected no failures, got %d", result.FailureCount)
	}
	if result.Status != slo.StatusPass {
		t.Errorf("Expected pass, got %s (%s)", result.Status, result.Notes)
	}
	if len(result.Steps) != 2 || result.Steps[0] != "remember" || result.Steps[1] != "recall" {
		t.Errorf("Expected recorded step names, got %v", result.Steps)
	}
}

func TestWorkflowStepFailureFailsIteration(t *testing.T) {
	var firstCalls, secondCalls int64

	first := func(ctx context.Context) error {
		atomic.AddInt64(&firstCalls, 1)
		return errors.New("step one down")
	}
	second := func(ctx context.Context) error {
		atomic.AddInt64(&secondCalls, 1)
		return nil
	}

	workflow := harness.NewWorkflow("broken-chain", testutil.TestLogger(),
		harness.Step{Name: "first", Op: first},
		harness.Step{Name: "second", Op: second},
	)

	result, err := workflow.Run(context.Background(), 4, 3, 0.5)
	if err != nil {
		t.Fatalf("Scenario failed: %v", err)
	}

	// Failing step one aborts the iteration: later steps never run, the
	// worker moves on to its next iteration without retrying.
	if atomic.LoadInt64(&firstCalls) != 12 {
		t.Errorf("Expected 12 first-step calls, got %d", firstCalls)
	}
	if atomic.LoadInt64(&secondCalls) != 0 {
		t.Errorf("Expected second step to never run, got %d calls", secondCalls)
	}
	if result.FailureCount != 12 {
		t.Errorf("Expected 12 failed iterations, got %d", result.FailureCount)
	}
	if result.Status != slo.StatusFail {
		t.Errorf("Expected fail status, got %s", result.Status)
	}
	if !result.NoData {
		t.Error("Expected NoData=true with zero successful iterations")
	}
}

func TestWorkflowThresholdIsStrict(t *testing.T) {
	// Exactly half the iterations fail; with threshold 0.5 the success
	// count equals the requirement and must NOT pass.
	var calls int64
	op := func(ctx context.Context) error {
		if atomic.AddInt64(&calls, 1)%2 == 0 {
			return errors.New("alternating failure")
		}
		return nil
	}

	workflow := harness.NewWorkflow("borderline", testutil.TestLogger(),
		harness.Step{Name: "invoke", Op: op})

	result, err := workflow.Run(context.Background(), 1, 10, 0.5)
	if err != nil {
		t.Fatalf("Scenario failed: %v", err)
	}

	if result.SuccessCount != 5 {
		t.Fatalf("Expected 5 successes, got %d", result.SuccessCount)
	}
	if result.Status != slo.StatusFail {
		t.Errorf("Expected fail when successes only meet the threshold, got %s", result.Status)
	}
	testutil.AssertContains(t, result.Notes, "did not exceed")
}

func TestWorkflowValidation(t *testing.T) {
	logger := testutil.TestLogger()
	op := testutil.FixedLatencyOp(time.Millisecond)
	step := harness.Step{Name: "invoke", Op: op}

	empty := harness.NewWorkflow("empty", logger)
	if _, err := empty.Run(context.Background(), 1, 1, 0.5); err != harness.ErrNoSteps {
		t.Errorf("Expected ErrNoSteps, got %v", err)
	}

	w := harness.NewWorkflow("w", logger, step)
	if _, err := w.Run(context.Background(), 0, 1, 0.5); err != harness.ErrInvalidConcurrency {
		t.Errorf("Expected ErrInvalidConcurrency, got %v", err)
	}
	if _, err := w.Run(context.Background(), 1, 0, 0.5); err != harness.ErrInvalidSampleSize {
		t.Errorf("Expected ErrInvalidSampleSize, got %v", err)
	}
	for _, threshold := range []float64{0, 1, -0.5, 1.5} {
		if _, err := w.Run(context.Background(), 1, 1, threshold); err != harness.ErrInvalidThreshold {
			t.Errorf("Expected ErrInvalidThreshold for %v, got %v", threshold, err)
		}
	}
}

func TestWorkflowAccountsEveryIteration(t *testing.T) {
	workflow := harness.NewWorkflow("accounting", testutil.TestLogger(),
		harness.Step{Name: "invoke", Op: testutil.FlakyOp(0, 3)})

	result, err := workflow.Run(context.Background(), 6, 10, 0.5)
	if err != nil {
		t.Fatalf("Scenario failed: %v", err)
	}

	if result.SuccessCount+result.FailureCount != 60 {
		t.Errorf("Expected 60 accounted iterations, got %d",
			result.SuccessCount+result.FailureCount)
	}
}
