package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"membench/internal/config"
	"membench/internal/harness"
	"membench/internal/logging"
)

// TestLogger creates a test logger with minimal configuration
func TestLogger() *logging.Logger {
	testLogConfig := logging.TestLoggingConfig()
	return logging.NewLogger(&testLogConfig)
}

// TestConfig creates a test configuration with small sample sizes and
// short durations so suites stay fast
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Harness.SampleSize = 20
	cfg.Harness.WarmupDuration = 0
	cfg.Harness.LoadDuration = 200 * time.Millisecond
	cfg.Harness.LadderDuration = 100 * time.Millisecond
	cfg.Harness.Ladder = []int{2, 4, 6}
	return cfg
}

// FixedLatencyOp returns an operation that always succeeds after the
// given delay
func FixedLatencyOp(delay time.Duration) harness.Operation {
	return func(ctx context.Context) error {
		select {
		case <-time.After(delay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// FailingOp returns an operation that always fails with the given message
func FailingOp(msg string) harness.Operation {
	return func(ctx context.Context) error {
		return errors.New(msg)
	}
}

// FlakyOp returns an operation that fails every nth call, counting from
// the first. Calls are counted across goroutines.
func FlakyOp(delay time.Duration, failEvery int64) harness.Operation {
	var calls int64
	return func(ctx context.Context) error {
		n := atomic.AddInt64(&calls, 1)
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if failEvery > 0 && n%failEvery == 0 {
			return fmt.Errorf("injected failure on call %d", n)
		}
		return nil
	}
}

// CircuitTrippingOp returns an operation that succeeds until the call
// threshold, then fails fast with a circuit breaker error
func CircuitTrippingOp(threshold int64) harness.Operation {
	var calls int64
	return func(ctx context.Context) error {
		if atomic.AddInt64(&calls, 1) > threshold {
			return errors.New("circuit breaker open")
		}
		return nil
	}
}

// PanickyOp returns an operation that panics on every call
func PanickyOp(msg string) harness.Operation {
	return func(ctx context.Context) error {
		panic(msg)
	}
}

// GenerateRandomString generates a random string of given length
func GenerateRandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

// GenerateRandomKey generates a random key for testing
func GenerateRandomKey() string {
	return fmt.Sprintf("test-key-%s", GenerateRandomString(8))
}

// GenerateRandomValue generates a random value for testing
func GenerateRandomValue() string {
	return fmt.Sprintf("test-value-%s", GenerateRandomString(16))
}

// HTTPTestRecorder creates a new httptest.ResponseRecorder for testing
func HTTPTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// AssertHTTPStatus verifies that the HTTP response has the expected status code
func AssertHTTPStatus(t *testing.T, recorder *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()

	if recorder.Code != expectedStatus {
		t.Errorf("Expected HTTP status %d, got %d", expectedStatus, recorder.Code)
	}
}

// AssertHTTPHeader verifies that the HTTP response has the expected header value
func AssertHTTPHeader(t *testing.T, recorder *httptest.ResponseRecorder, header, expectedValue string) {
	t.Helper()

	actualValue := recorder.Header().Get(header)
	if actualValue != expectedValue {
		t.Errorf("Expected header %s to be %s, got %s", header, expectedValue, actualValue)
	}
}

// MockHTTPRequest creates a mock HTTP request for testing
func MockHTTPRequest(method, url string, body string) *http.Request {
	if body != "" {
		return httptest.NewRequest(method, url, strings.NewReader(body))
	}
	return httptest.NewRequest(method, url, nil)
}

// AssertContains verifies that a string contains a substring
func AssertContains(t *testing.T, str, substr string) {
	t.Helper()

	if !strings.Contains(str, substr) {
		t.Errorf("Expected string to contain %s, but it doesn't: %s", substr, str)
	}
}

// AssertNotContains verifies that a string does not contain a substring
func AssertNotContains(t *testing.T, str, substr string) {
	t.Helper()

	if strings.Contains(str, substr) {
		t.Errorf("Expected string to not contain %s, but it does: %s", substr, str)
	}
}

// AssertInRange verifies that a value falls within [low, high]
func AssertInRange(t *testing.T, name string, value, low, high float64) {
	t.Helper()

	if value < low || value > high {
		t.Errorf("Expected %s in [%v, %v], got %v", name, low, high, value)
	}
}

// WithTimeout runs a test function with a timeout
func WithTimeout(t *testing.T, timeout time.Duration, fn func()) {
	t.Helper()

	done := make(chan bool, 1)

	go func() {
		fn()
		done <- true
	}()

	select {
	case <-done:
		// Test completed within timeout
	case <-time.After(timeout):
		t.Fatalf("Test timed out after %v", timeout)
	}
}

// WaitForCondition waits for a condition to become true with timeout
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, checkInterval time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(checkInterval)
	}

	t.Fatalf("Condition not met within %v", timeout)
}

// ConcurrentTest runs a test function concurrently with the given parallelism
func ConcurrentTest(t *testing.T, concurrency int, testFunc func(int)) {
	t.Helper()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			testFunc(id)
		}(i)
	}
	wg.Wait()
}
