// Package report renders finished harness results as Markdown tables and
// JSON documents. Output is deterministic for identical inputs: fixed
// column order, fixed 2-decimal rounding, rows in the insertion order of
// the owning result list.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"membench/internal/harness"
)

// noDataCell marks a metric that is undefined because the run had no
// successful samples. Rendering 0.00 instead would misread as a fast pass.
const noDataCell = "n/a"

func cell(v float64, noData bool) string {
	if noData {
		return noDataCell
	}
	return fmt.Sprintf("%.2f", v)
}

// ExportBenchmarkResults renders operation benchmarks as a Markdown table.
func ExportBenchmarkResults(results []harness.OperationBenchmark) string {
	var b strings.Builder
	b.WriteString("| operation | layer | category | p50 | p95 | p99 | ops/sec | status |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			r.OperationName,
			r.Layer,
			r.Category,
			cell(r.P50LatencyMs, r.NoData),
			cell(r.P95LatencyMs, r.NoData),
			cell(r.P99LatencyMs, r.NoData),
			cell(r.ThroughputOpsPerSec, r.NoData),
			r.Status,
		)
	}
	return b.String()
}

// ExportLoadTestResults renders load-test results as a Markdown table.
func ExportLoadTestResults(results []harness.LoadTestResult) string {
	var b strings.Builder
	b.WriteString("| scenario | concurrency | duration_ms | success | failure | success_rate | p95 | p99 | ops/sec | leak_mb | status |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %d | %.0f | %d | %d | %s | %s | %s | %s | %.2f | %s |\n",
			r.ScenarioName,
			r.Concurrency,
			r.DurationMs,
			r.SuccessCount,
			r.FailureCount,
			fmt.Sprintf("%.2f", r.SuccessRate),
			cell(r.P95LatencyMs, r.NoData),
			cell(r.P99LatencyMs, r.NoData),
			cell(r.ThroughputOpsPerSec, r.NoData),
			r.MemoryLeakMb,
			r.Status,
		)
	}
	return b.String()
}

// ExportScenarioResults renders scenario workflow results as a Markdown
// table.
func ExportScenarioResults(results []harness.ScenarioResult) string {
	var b strings.Builder
	b.WriteString("| scenario | concurrency | iterations | success | failure | success_rate | threshold | p95 | ops/sec | status |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %s | %.2f | %s | %s | %s |\n",
			r.ScenarioName,
			r.Concurrency,
			r.Iterations,
			r.SuccessCount,
			r.FailureCount,
			fmt.Sprintf("%.2f", r.SuccessRate),
			r.PassThreshold,
			cell(r.P95LatencyMs, r.NoData),
			cell(r.ThroughputOpsPerSec, r.NoData),
			r.Status,
		)
	}
	return b.String()
}

// ExportSummary renders a runner summary as a short Markdown block.
func ExportSummary(s harness.RunSummary) string {
	var b strings.Builder
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- total: %d (pass %d / warn %d / fail %d)\n", s.Total, s.Passed, s.Warned, s.Failed)
	fmt.Fprintf(&b, "- average p95: %.2fms\n", s.AvgP95Ms)
	fmt.Fprintf(&b, "- total memory delta: %.2fMB\n", s.TotalMemoryMb)
	return b.String()
}

// ExportDegradationReport renders a ladder analysis as Markdown: the
// per-step table plus the trend verdict.
func ExportDegradationReport(r harness.DegradationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Degradation: %s\n\n", r.OperationName)
	b.WriteString(ExportLoadTestResults(r.Steps))
	b.WriteString("\n")
	fmt.Fprintf(&b, "- attempts: %d, failures: %d, circuit trips: %d\n",
		r.TotalAttempts, r.TotalFailures, r.CircuitBreakerTrips)
	fmt.Fprintf(&b, "- status: %s\n", r.Status)
	for _, v := range r.Violations {
		fmt.Fprintf(&b, "- violation: %s\n", v)
	}
	return b.String()
}

// WriteJSON writes any result list or report as indented JSON. Struct field
// order is fixed, so identical inputs produce identical bytes.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
