package logging

import (
	"context"
	"testing"
	"time"

	"membench/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config config.LoggingConfig
	}{
		{
			name: "development config",
			config: config.LoggingConfig{
				Level:                "debug",
				Format:               "console",
				Output:               "stdout",
				EnablePerformanceLog: true,
			},
		},
		{
			name: "production config",
			config: config.LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		},
		{
			name: "quiet config",
			config: config.LoggingConfig{
				Level:  "error",
				Format: "json",
				Output: "stderr",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(&tt.config)
			if logger == nil {
				t.Fatal("Expected logger to be created")
			}

			logger.Info("Test log message", "test", true)
			logger.Debug("Debug message", "debug", true)
			logger.Warn("Warning message", "warning", true)
			logger.Error("Error message", "error", "test error")
		})
	}
}

func TestLoggerWithContext(t *testing.T) {
	cfg := TestLoggingConfig()
	logger := NewLogger(&cfg)

	ctx := context.Background()
	ctx = context.WithValue(ctx, RunIDKey, "run-42")
	ctx = context.WithValue(ctx, ScenarioKey, "remember-recall")
	ctx = context.WithValue(ctx, TierKey, 100)

	ctxLogger := logger.WithContext(ctx)
	if ctxLogger == nil {
		t.Fatal("Expected context logger")
	}
	ctxLogger.Error("Test with context", "test", "value")
}

func TestLoggerFields(t *testing.T) {
	cfg := TestLoggingConfig()
	logger := NewLogger(&cfg)

	fieldLogger := logger.WithField("component", "harness")
	fieldLogger.Error("Test with field")

	fieldsLogger := logger.WithFields(map[string]interface{}{
		"component": "harness",
		"operation": "badger-set",
	})
	fieldsLogger.Error("Test with fields")

	errorLogger := logger.WithError(&testError{message: "test error"})
	errorLogger.Error("Test with error")
}

func TestRunLifecycleLogging(t *testing.T) {
	cfg := TestLoggingConfig()
	logger := NewLogger(&cfg)

	ctx := context.Background()
	logger.RunStart(ctx, "benchmark", "badger-set", 1)
	logger.RunEnd(ctx, "benchmark", "badger-set", "pass", 100*time.Millisecond, 1000)
	logger.RunEnd(ctx, "load", "badger-set", "fail", time.Second, 5000)
}

func TestPerformanceLogging(t *testing.T) {
	cfg := TestLoggingConfig()
	cfg.EnablePerformanceLog = true
	logger := NewLogger(&cfg)

	logger.Performance(context.Background(), "benchmark_p95_ms", 42.5, "ms",
		map[string]string{"operation": "badger-get"})

	// Disabled performance logging must be a no-op, not a panic.
	cfg2 := TestLoggingConfig()
	cfg2.EnablePerformanceLog = false
	NewLogger(&cfg2).Performance(context.Background(), "benchmark_p95_ms", 42.5, "ms", nil)
}

func TestEnvironmentConfigs(t *testing.T) {
	dev := DevelopmentLoggingConfig()
	if dev.Level != "debug" {
		t.Errorf("Expected development level debug, got %s", dev.Level)
	}

	prod := ProductionLoggingConfig()
	if prod.Level != "info" || prod.Format != "json" {
		t.Errorf("Unexpected production config: %+v", prod)
	}

	test := TestLoggingConfig()
	if test.Level != "error" {
		t.Errorf("Expected test level error, got %s", test.Level)
	}
}

type testError struct {
	message string
}

func (e *testError) Error() string {
	return e.message
}
