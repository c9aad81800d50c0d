package harness

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"membench/internal/logging"
)

// SessionWriter performs one write on behalf of a logical session and
// returns the value the backend recorded for it. Values must embed the
// session id so ownership stays attributable.
type SessionWriter func(ctx context.Context, sessionID string, seq int) (string, error)

// IsolationResult records the outcome of a session-isolation check.
type IsolationResult struct {
	Sessions         int                 `json:"sessions"`
	WritesPerSession int                 `json:"writes_per_session"`
	Accumulators     map[string][]string `json:"accumulators"`
	Leaks            []string            `json:"leaks"`
	Clean            bool                `json:"clean"`
}

// IsolationChecker verifies that concurrent logical sessions sharing the
// same worker infrastructure never leak state across each other.
type IsolationChecker struct {
	logger *logging.Logger
}

// NewIsolationChecker creates a session isolation checker.
func NewIsolationChecker(logger *logging.Logger) *IsolationChecker {
	return &IsolationChecker{logger: logger}
}

// Check runs sessions concurrent logical sessions, each issuing
// writesPerSession writes into a private accumulator keyed by its session
// id. After the join barrier it asserts every accumulator holds exactly its
// own writes: correct count, every value attributable to the owning
// session. Each accumulator has a single writing goroutine, so the check
// itself introduces no shared mutable state before the join.
func (c *IsolationChecker) Check(ctx context.Context, sessions, writesPerSession int, write SessionWriter) (IsolationResult, error) {
	if sessions <= 0 {
		return IsolationResult{}, ErrInvalidConcurrency
	}
	if writesPerSession <= 0 {
		return IsolationResult{}, ErrInvalidSampleSize
	}

	type sessionAccumulator struct {
		id     string
		values []string
		errs   []error
	}

	accs := make([]sessionAccumulator, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		accs[i].id = fmt.Sprintf("session-%03d", i)
		wg.Add(1)
		go func(acc *sessionAccumulator) {
			defer wg.Done()
			for seq := 0; seq < writesPerSession; seq++ {
				value, err := write(ctx, acc.id, seq)
				if err != nil {
					acc.errs = append(acc.errs, err)
					continue
				}
				acc.values = append(acc.values, value)
			}
		}(&accs[i])
	}
	wg.Wait()

	result := IsolationResult{
		Sessions:         sessions,
		WritesPerSession: writesPerSession,
		Accumulators:     make(map[string][]string, sessions),
	}

	for i := range accs {
		acc := &accs[i]
		result.Accumulators[acc.id] = acc.values

		if len(acc.values) != writesPerSession {
			result.Leaks = append(result.Leaks, fmt.Sprintf(
				"%s recorded %d values, expected %d", acc.id, len(acc.values), writesPerSession))
		}
		for _, v := range acc.values {
			if !strings.Contains(v, acc.id) {
				result.Leaks = append(result.Leaks, fmt.Sprintf(
					"%s received foreign value %q", acc.id, v))
			}
		}
		for _, err := range acc.errs {
			result.Leaks = append(result.Leaks, fmt.Sprintf(
				"%s write failed: %v", acc.id, err))
		}
	}

	result.Clean = len(result.Leaks) == 0

	c.logger.WithFields(map[string]interface{}{
		"sessions":           sessions,
		"writes_per_session": writesPerSession,
		"leaks":              len(result.Leaks),
	}).Info("Session isolation check completed", "clean", result.Clean)

	return result, nil
}
