// Package harness implements the load-generation and benchmarking runners:
// sequential operation benchmarks, concurrent load tests, multi-step
// scenario workflows, degradation analysis across a concurrency ladder and
// session isolation checks. All state is in-memory and process-local; the
// operations under test are injected as black-box callables.
package harness

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Operation is the injected callable under test. The harness makes no
// assumptions about its internals: it may sleep, call a remote backend or
// fail. Errors are counted toward the error rate and never abort a run.
type Operation func(ctx context.Context) error

// Configuration errors fail fast before any worker launches, since a
// misconfigured run produces meaningless statistics.
var (
	ErrInvalidSampleSize  = fmt.Errorf("harness: sample size must be positive")
	ErrInvalidConcurrency = fmt.Errorf("harness: concurrency must be positive")
	ErrInvalidDuration    = fmt.Errorf("harness: duration must be positive")
	ErrInvalidThreshold   = fmt.Errorf("harness: pass threshold must be in (0,1)")
	ErrNoSteps            = fmt.Errorf("harness: scenario requires at least one step")
	ErrEmptyLadder        = fmt.Errorf("harness: ladder requires at least one tier")
)

// invoke calls the operation, converting a panic into a counted failure so
// a misbehaving operation cannot take down the whole run.
func invoke(ctx context.Context, op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

// workerAccumulator is the worker-private record of one worker's attempts.
// Workers never share accumulators, so the hot path needs no locks; merging
// happens strictly after the join barrier.
type workerAccumulator struct {
	latenciesMs  []float64
	successes    int
	failures     int
	circuitTrips int
}

func (a *workerAccumulator) recordSuccess(latencyMs float64) {
	a.latenciesMs = append(a.latenciesMs, latencyMs)
	a.successes++
}

func (a *workerAccumulator) recordFailure(err error, latencyMs float64) {
	a.failures++
	if isFastFail(err) {
		a.circuitTrips++
	}
}

// mergeAccumulators flattens per-worker accumulators into a single latency
// list plus counters. Callers must only invoke this after all workers have
// joined.
func mergeAccumulators(accs []workerAccumulator) (latenciesMs []float64, successes, failures, circuitTrips int) {
	total := 0
	for i := range accs {
		total += len(accs[i].latenciesMs)
	}
	latenciesMs = make([]float64, 0, total)
	for i := range accs {
		latenciesMs = append(latenciesMs, accs[i].latenciesMs...)
		successes += accs[i].successes
		failures += accs[i].failures
		circuitTrips += accs[i].circuitTrips
	}
	return latenciesMs, successes, failures, circuitTrips
}

// snapshotMemoryMB returns the current heap allocation in megabytes. The
// figure is an approximation subject to GC noise; deltas derived from it
// are estimates, not exact accounting.
func snapshotMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / (1024 * 1024)
}

// memoryDeltaMB returns the non-negative growth between two snapshots.
func memoryDeltaMB(beforeMB, afterMB float64) float64 {
	delta := afterMB - beforeMB
	if delta < 0 {
		return 0
	}
	return delta
}

// memorySampler tracks peak heap allocation during a run on a coarse tick.
// It owns its state exclusively until Stop returns, so no lock is needed.
type memorySampler struct {
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	peakMB   float64
}

func startMemorySampler(interval time.Duration) *memorySampler {
	s := &memorySampler{
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		peakMB:   snapshotMemoryMB(),
	}
	go s.run()
	return s
}

func (s *memorySampler) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if mb := snapshotMemoryMB(); mb > s.peakMB {
				s.peakMB = mb
			}
		}
	}
}

// Stop halts sampling and returns the observed peak in megabytes.
func (s *memorySampler) Stop() float64 {
	close(s.stopCh)
	<-s.doneCh
	if mb := snapshotMemoryMB(); mb > s.peakMB {
		s.peakMB = mb
	}
	return s.peakMB
}

// nowMs returns a wall-clock timestamp in milliseconds for sample records.
func nowMs() int64 {
	return time.Now().UnixMilli()
}
