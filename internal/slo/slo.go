package slo

import "fmt"

// Status is the pass/warn/fail classification of a finished run. It is
// computed exactly once from (p95, errorRate, target) and never mutated
// afterwards.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Category describes the kind of operation being benchmarked. Ceilings are
// keyed by category because reads, writes and system calls have different
// latency budgets.
type Category string

const (
	CategoryRead   Category = "read"
	CategoryWrite  Category = "write"
	CategorySystem Category = "system"
)

// CategoryTarget holds the SLO ceilings for single-operation benchmarks of
// one category. Ceilings are soft: a run is a warn above 1.2x the p95
// ceiling and a fail above 1.5x.
type CategoryTarget struct {
	P95CeilingMs float64 `yaml:"p95_ceiling_ms" json:"p95_ceiling_ms"`
	P99CeilingMs float64 `yaml:"p99_ceiling_ms" json:"p99_ceiling_ms"`
	MaxFailRate  float64 `yaml:"max_fail_rate" json:"max_fail_rate"`
}

// TierTarget holds the absolute ceilings for one concurrency tier of a
// sustained load test. Higher tiers carry progressively relaxed ceilings;
// that is a deliberate degradation budget, not leniency.
type TierTarget struct {
	Concurrency int     `yaml:"concurrency" json:"concurrency"`
	MaxFailRate float64 `yaml:"max_fail_rate" json:"max_fail_rate"`
	MaxP95Ms    float64 `yaml:"max_p95_ms" json:"max_p95_ms"`
}

// DefaultCategoryTargets returns the ceilings used when no configuration
// overrides them.
func DefaultCategoryTargets() map[Category]CategoryTarget {
	return map[Category]CategoryTarget{
		CategoryRead:   {P95CeilingMs: 100, P99CeilingMs: 200, MaxFailRate: 0.01},
		CategoryWrite:  {P95CeilingMs: 150, P99CeilingMs: 300, MaxFailRate: 0.01},
		CategorySystem: {P95CeilingMs: 50, P99CeilingMs: 100, MaxFailRate: 0.005},
	}
}

// DefaultTierTargets returns the concurrency ladder with its per-tier
// ceilings, light (10) through stress (5000).
func DefaultTierTargets() []TierTarget {
	return []TierTarget{
		{Concurrency: 10, MaxFailRate: 0.01, MaxP95Ms: 200},
		{Concurrency: 100, MaxFailRate: 0.02, MaxP95Ms: 500},
		{Concurrency: 1000, MaxFailRate: 0.05, MaxP95Ms: 2000},
		{Concurrency: 5000, MaxFailRate: 0.10, MaxP95Ms: 5000},
	}
}

// TierFor returns the tier target matching the given concurrency, falling
// back to the nearest tier at or above it. The last tier absorbs anything
// beyond the ladder.
func TierFor(tiers []TierTarget, concurrency int) TierTarget {
	for _, t := range tiers {
		if concurrency <= t.Concurrency {
			return t
		}
	}
	if len(tiers) > 0 {
		return tiers[len(tiers)-1]
	}
	// No ladder configured; absolute defaults for a stress tier.
	return TierTarget{Concurrency: concurrency, MaxFailRate: 0.10, MaxP95Ms: 5000}
}

// Classify maps a benchmark's p95 latency and error rate onto pass/warn/fail
// for its category target. The error-rate breach is evaluated before the
// latency breach so a fast-failing system is never classified as passing on
// the latency of its failure path.
func Classify(p95Ms, errorRate float64, target CategoryTarget) (Status, string) {
	if errorRate > target.MaxFailRate {
		return StatusFail, fmt.Sprintf("error rate %.4f exceeds budget %.4f", errorRate, target.MaxFailRate)
	}
	if p95Ms > target.P95CeilingMs*1.5 {
		return StatusFail, fmt.Sprintf("p95 %.2fms exceeds 1.5x ceiling %.2fms", p95Ms, target.P95CeilingMs)
	}
	if p95Ms > target.P95CeilingMs*1.2 {
		return StatusWarn, fmt.Sprintf("p95 %.2fms exceeds 1.2x ceiling %.2fms", p95Ms, target.P95CeilingMs)
	}
	return StatusPass, ""
}

// ClassifyTier maps a load-test result onto pass/fail for its concurrency
// tier. Sustained-load SLOs are absolute ceilings, so there is no warn
// band. Error rate is checked first, same as Classify.
func ClassifyTier(p95Ms, errorRate float64, tier TierTarget) (Status, string) {
	if errorRate > tier.MaxFailRate {
		return StatusFail, fmt.Sprintf("error rate %.4f exceeds tier budget %.4f", errorRate, tier.MaxFailRate)
	}
	if p95Ms > tier.MaxP95Ms {
		return StatusFail, fmt.Sprintf("p95 %.2fms exceeds tier ceiling %.2fms", p95Ms, tier.MaxP95Ms)
	}
	return StatusPass, ""
}
