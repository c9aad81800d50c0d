package harness

import (
	"context"
	"fmt"

	"membench/internal/logging"
	"membench/internal/slo"
)

// BenchmarkSpec describes one registered benchmark: which operation to
// drive, under which name, and how many samples to take.
type BenchmarkSpec struct {
	Name       string
	Layer      string
	Category   slo.Category
	SampleSize int
	Op         Operation
}

// Suite runs a batch of registered benchmarks through a shared Runner so a
// whole report can be produced in a single pass. Individual failing
// benchmarks do not stop the batch; only cancellation does.
type Suite struct {
	logger    *logging.Logger
	runner    *Runner
	specs     []BenchmarkSpec
	isRunning bool
}

// NewSuite creates a benchmark suite over the given runner.
func NewSuite(runner *Runner, logger *logging.Logger) *Suite {
	return &Suite{
		logger: logger,
		runner: runner,
	}
}

// Register adds a benchmark spec to the batch.
func (s *Suite) Register(spec BenchmarkSpec) {
	s.specs = append(s.specs, spec)
	s.logger.Info("Registered benchmark", "name", spec.Name, "category", string(spec.Category))
}

// RunAll executes every registered benchmark in registration order,
// checking for cancellation between runs, and returns the aggregate
// summary.
func (s *Suite) RunAll(ctx context.Context) (RunSummary, error) {
	if s.isRunning {
		return RunSummary{}, fmt.Errorf("harness: suite is already running")
	}
	s.isRunning = true
	defer func() { s.isRunning = false }()

	s.logger.Info("Starting benchmark suite", "benchmarks", len(s.specs))

	for _, spec := range s.specs {
		if ctx.Err() != nil {
			s.logger.Warn("Benchmark suite cancelled", "completed", s.runner.Summary().Total)
			break
		}
		if _, err := s.runner.Benchmark(ctx, spec.Name, spec.Layer, spec.Category, spec.Op, spec.SampleSize); err != nil {
			return RunSummary{}, fmt.Errorf("benchmark %s: %w", spec.Name, err)
		}
	}

	summary := s.runner.Summary()
	s.logger.Info("Benchmark suite completed",
		"total", summary.Total,
		"passed", summary.Passed,
		"warned", summary.Warned,
		"failed", summary.Failed,
	)

	return summary, nil
}

// Results exposes the underlying runner's accumulated results.
func (s *Suite) Results() []OperationBenchmark {
	return s.runner.Results()
}
