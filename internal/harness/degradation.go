package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"membench/internal/logging"
	"membench/internal/slo"
)

// extremeConcurrency is the tier from which fast-fail errors are expected
// and counted separately from generic failures.
const extremeConcurrency = 1000

// latencyGrowthBound caps acceptable step-over-step latency growth across
// the ladder: each step may add at most 50% over its predecessor.
const latencyGrowthBound = 0.5

// isFastFail reports whether an operation error signals a deliberate
// fast-fail (an open circuit breaker) rather than a generic error or
// timeout.
func isFastFail(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "circuit") || strings.Contains(msg, "open")
}

// DegradationReport records the outcome of running the same operation
// across an ascending concurrency ladder. The classification is a property
// of the latency sequence, not of any single step.
type DegradationReport struct {
	OperationName       string           `json:"operation_name"`
	Ladder              []int            `json:"ladder"`
	Steps               []LoadTestResult `json:"steps"`
	Violations          []string         `json:"violations"`
	TotalAttempts       int              `json:"total_attempts"`
	TotalFailures       int              `json:"total_failures"`
	CircuitBreakerTrips int              `json:"circuit_breaker_trips"`
	GenericFailures     int              `json:"generic_failures"`
	MadeProgress        bool             `json:"made_progress"`
	Status              slo.Status       `json:"status"`
}

// DegradationAnalyzer runs a load runner across an ascending concurrency
// ladder and asserts the latency trend stays bounded and that the system
// keeps making progress under extreme load.
type DegradationAnalyzer struct {
	loadRunner *LoadRunner
	logger     *logging.Logger
}

// NewDegradationAnalyzer creates an analyzer driving the given load runner.
func NewDegradationAnalyzer(loadRunner *LoadRunner, logger *logging.Logger) *DegradationAnalyzer {
	return &DegradationAnalyzer{
		loadRunner: loadRunner,
		logger:     logger,
	}
}

// Analyze runs the operation at each ladder step for stepDuration and
// checks two properties over the whole sequence: average latency must not
// grow by more than 50% between adjacent steps, and at extreme concurrency
// (>= 1000) the system must still complete some attempts successfully;
// failures are expected there and never disqualifying on their own;
// fast-fail errors ("circuit"/"open") are tallied separately from generic
// errors and timeouts.
func (da *DegradationAnalyzer) Analyze(ctx context.Context, operationName string, ladder []int, stepDuration time.Duration, op Operation) (DegradationReport, error) {
	if len(ladder) == 0 {
		return DegradationReport{}, ErrEmptyLadder
	}
	for i, c := range ladder {
		if c <= 0 {
			return DegradationReport{}, ErrInvalidConcurrency
		}
		if i > 0 && c <= ladder[i-1] {
			return DegradationReport{}, fmt.Errorf("harness: ladder must be strictly ascending, got %v", ladder)
		}
	}
	if stepDuration <= 0 {
		return DegradationReport{}, ErrInvalidDuration
	}

	report := DegradationReport{
		OperationName: operationName,
		Ladder:        append([]int(nil), ladder...),
	}

	for _, concurrency := range ladder {
		stepName := fmt.Sprintf("%s-degradation-%d", operationName, concurrency)
		result, err := da.loadRunner.RunLoadTest(ctx, stepName, concurrency, stepDuration, op)
		if err != nil {
			return DegradationReport{}, err
		}
		report.Steps = append(report.Steps, result)

		report.TotalAttempts += result.SuccessCount + result.FailureCount
		report.TotalFailures += result.FailureCount
		if concurrency >= extremeConcurrency {
			report.CircuitBreakerTrips += result.CircuitBreakerTrips
			report.GenericFailures += result.FailureCount - result.CircuitBreakerTrips
		}

		if ctx.Err() != nil {
			break
		}
	}

	// Trend check across adjacent completed steps.
	for i := 1; i < len(report.Steps); i++ {
		prev := report.Steps[i-1].AvgLatencyMs
		curr := report.Steps[i].AvgLatencyMs
		if prev <= 0 {
			continue
		}
		if curr-prev >= prev*latencyGrowthBound {
			report.Violations = append(report.Violations, fmt.Sprintf(
				"latency grew %.2fms -> %.2fms between concurrency %d and %d, exceeding %.0f%% bound",
				prev, curr, report.Steps[i-1].Concurrency, report.Steps[i].Concurrency, latencyGrowthBound*100))
		}
	}

	// Graceful degradation means some progress, never zero failures.
	report.MadeProgress = report.TotalFailures < report.TotalAttempts

	if len(report.Violations) == 0 && report.MadeProgress {
		report.Status = slo.StatusPass
	} else {
		report.Status = slo.StatusFail
		if !report.MadeProgress {
			report.Violations = append(report.Violations, "no attempt succeeded anywhere on the ladder")
		}
	}

	da.logger.WithFields(map[string]interface{}{
		"operation":      operationName,
		"steps":          len(report.Steps),
		"violations":     len(report.Violations),
		"circuit_trips":  report.CircuitBreakerTrips,
		"total_attempts": report.TotalAttempts,
	}).Info("Degradation analysis completed", "status", string(report.Status))

	return report, nil
}
