package logging

import (
	"membench/internal/config"
)

// DevelopmentLoggingConfig returns logging configuration optimized for development
func DevelopmentLoggingConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:                "debug",
		Format:               "console", // Human-readable format for development
		Output:               "stdout",
		EnablePerformanceLog: true, // Per-run metrics are useful while tuning
	}
}

// ProductionLoggingConfig returns logging configuration for CI and batch runs
func ProductionLoggingConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:                "info",
		Format:               "json", // Machine-readable format for pipelines
		Output:               "stdout",
		EnablePerformanceLog: false, // The report carries the numbers
	}
}

// TestLoggingConfig returns logging configuration optimized for testing
func TestLoggingConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:                "error", // Minimal logging during tests
		Format:               "json",
		Output:               "stderr",
		EnablePerformanceLog: false,
	}
}
