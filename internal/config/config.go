package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"membench/internal/slo"
)

// Config is the root harness configuration. A misconfigured run produces
// meaningless statistics, so Load validates everything before any worker
// is allowed to launch.
type Config struct {
	Harness   HarnessConfig    `yaml:"harness" json:"harness"`
	Targets   TargetsConfig    `yaml:"targets" json:"targets"`
	Scenarios []ScenarioConfig `yaml:"scenarios" json:"scenarios"`
	Logging   LoggingConfig    `yaml:"logging" json:"logging"`
	Report    ReportConfig     `yaml:"report" json:"report"`
}

// HarnessConfig controls run shape: sample counts, durations and the
// degradation ladder.
type HarnessConfig struct {
	SampleSize     int           `yaml:"sample_size" json:"sample_size"`
	LoadDuration   time.Duration `yaml:"load_duration" json:"load_duration"`
	WarmupDuration time.Duration `yaml:"warmup_duration" json:"warmup_duration"`
	Ladder         []int         `yaml:"ladder" json:"ladder"`
	LadderDuration time.Duration `yaml:"ladder_duration" json:"ladder_duration"`
}

// TargetsConfig holds the SLO ceilings, keyed by operation category for
// single-operation benchmarks and by concurrency tier for load tests.
type TargetsConfig struct {
	Categories map[slo.Category]slo.CategoryTarget `yaml:"categories" json:"categories"`
	Tiers      []slo.TierTarget                    `yaml:"tiers" json:"tiers"`
}

// ScenarioConfig holds the per-scenario knobs of a multi-step workflow.
// PassThreshold is documented per scenario rather than globally because
// workflows differ in how much failure they can absorb.
type ScenarioConfig struct {
	Name          string  `yaml:"name" json:"name"`
	Concurrency   int     `yaml:"concurrency" json:"concurrency"`
	Iterations    int     `yaml:"iterations" json:"iterations"`
	PassThreshold float64 `yaml:"pass_threshold" json:"pass_threshold"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level                string `yaml:"level" json:"level"`
	Format               string `yaml:"format" json:"format"`
	Output               string `yaml:"output" json:"output"`
	EnablePerformanceLog bool   `yaml:"enable_performance_log" json:"enable_performance_log"`
}

// ReportConfig controls how finished results are rendered and exposed.
type ReportConfig struct {
	Format     string `yaml:"format" json:"format"`
	OutputPath string `yaml:"output_path" json:"output_path"`
	ServeAddr  string `yaml:"serve_addr" json:"serve_addr"`
}

// Load reads configuration from an optional YAML file, applies MB_*
// environment overrides and validates the result.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Harness: HarnessConfig{
			SampleSize:     100,
			LoadDuration:   10 * time.Second,
			WarmupDuration: 0,
			Ladder:         []int{100, 200, 300, 400, 500},
			LadderDuration: 5 * time.Second,
		},
		Targets: TargetsConfig{
			Categories: slo.DefaultCategoryTargets(),
			Tiers:      slo.DefaultTierTargets(),
		},
		Scenarios: []ScenarioConfig{
			// remember -> recall loops tolerate almost nothing.
			{Name: "remember-recall", Concurrency: 50, Iterations: 20, PassThreshold: 0.95},
			// Mixed read/write/system traffic absorbs a little more.
			{Name: "mixed-backend", Concurrency: 100, Iterations: 10, PassThreshold: 0.90},
			// Burst sessions run hot enough that 15% loss is acceptable.
			{Name: "burst-session", Concurrency: 200, Iterations: 5, PassThreshold: 0.85},
		},
		Logging: LoggingConfig{
			Level:                "info",
			Format:               "json",
			Output:               "stdout",
			EnablePerformanceLog: false,
		},
		Report: ReportConfig{
			Format:     "markdown",
			OutputPath: "",
			ServeAddr:  "",
		},
	}
}

func loadFromFile(cfg *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return nil
}

func loadFromEnvironment(cfg *Config) {
	if v := os.Getenv("MB_SAMPLE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Harness.SampleSize = n
		}
	}
	if v := os.Getenv("MB_LOAD_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Harness.LoadDuration = d
		}
	}
	if v := os.Getenv("MB_WARMUP_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Harness.WarmupDuration = d
		}
	}
	if v := os.Getenv("MB_LADDER"); v != "" {
		var ladder []int
		for _, part := range strings.Split(v, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				ladder = append(ladder, n)
			}
		}
		if len(ladder) > 0 {
			cfg.Harness.Ladder = ladder
		}
	}

	if v := os.Getenv("MB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MB_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MB_LOG_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}

	if v := os.Getenv("MB_REPORT_FORMAT"); v != "" {
		cfg.Report.Format = v
	}
	if v := os.Getenv("MB_REPORT_OUTPUT"); v != "" {
		cfg.Report.OutputPath = v
	}
	if v := os.Getenv("MB_REPORT_SERVE_ADDR"); v != "" {
		cfg.Report.ServeAddr = v
	}
}

// Validate rejects configurations that would make a run's statistics
// meaningless. It runs before any worker launches.
func (c *Config) Validate() error {
	if c.Harness.SampleSize <= 0 {
		return fmt.Errorf("sample size must be positive, got %d", c.Harness.SampleSize)
	}
	if c.Harness.LoadDuration <= 0 {
		return fmt.Errorf("load duration must be positive, got %v", c.Harness.LoadDuration)
	}
	if c.Harness.WarmupDuration < 0 {
		return fmt.Errorf("warmup duration cannot be negative, got %v", c.Harness.WarmupDuration)
	}
	if len(c.Harness.Ladder) == 0 {
		return fmt.Errorf("degradation ladder cannot be empty")
	}
	if !sort.IntsAreSorted(c.Harness.Ladder) {
		return fmt.Errorf("degradation ladder must be ascending: %v", c.Harness.Ladder)
	}
	for _, step := range c.Harness.Ladder {
		if step <= 0 {
			return fmt.Errorf("ladder concurrency must be positive, got %d", step)
		}
	}
	if c.Harness.LadderDuration <= 0 {
		return fmt.Errorf("ladder duration must be positive, got %v", c.Harness.LadderDuration)
	}

	if len(c.Targets.Categories) == 0 {
		return fmt.Errorf("category targets cannot be empty")
	}
	for cat, t := range c.Targets.Categories {
		if t.P95CeilingMs <= 0 || t.P99CeilingMs <= 0 {
			return fmt.Errorf("category %s ceilings must be positive", cat)
		}
		if t.MaxFailRate < 0 || t.MaxFailRate > 1 {
			return fmt.Errorf("category %s max fail rate must be in [0,1], got %f", cat, t.MaxFailRate)
		}
	}
	if len(c.Targets.Tiers) == 0 {
		return fmt.Errorf("tier targets cannot be empty")
	}
	prev := 0
	for _, tier := range c.Targets.Tiers {
		if tier.Concurrency <= prev {
			return fmt.Errorf("tier concurrencies must be ascending and positive, got %d after %d", tier.Concurrency, prev)
		}
		if tier.MaxFailRate < 0 || tier.MaxFailRate > 1 {
			return fmt.Errorf("tier %d max fail rate must be in [0,1], got %f", tier.Concurrency, tier.MaxFailRate)
		}
		if tier.MaxP95Ms <= 0 {
			return fmt.Errorf("tier %d p95 ceiling must be positive", tier.Concurrency)
		}
		prev = tier.Concurrency
	}

	seen := make(map[string]bool)
	for _, sc := range c.Scenarios {
		if sc.Name == "" {
			return fmt.Errorf("scenario name cannot be empty")
		}
		if seen[sc.Name] {
			return fmt.Errorf("duplicate scenario name: %s", sc.Name)
		}
		seen[sc.Name] = true
		if sc.Concurrency <= 0 {
			return fmt.Errorf("scenario %s concurrency must be positive, got %d", sc.Name, sc.Concurrency)
		}
		if sc.Iterations <= 0 {
			return fmt.Errorf("scenario %s iterations must be positive, got %d", sc.Name, sc.Iterations)
		}
		if sc.PassThreshold <= 0 || sc.PassThreshold >= 1 {
			return fmt.Errorf("scenario %s pass threshold must be in (0,1), got %f", sc.Name, sc.PassThreshold)
		}
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	validFormats := map[string]bool{
		"json": true, "text": true, "console": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	validReports := map[string]bool{
		"markdown": true, "json": true, "text": true,
	}
	if !validReports[strings.ToLower(c.Report.Format)] {
		return fmt.Errorf("invalid report format: %s", c.Report.Format)
	}

	return nil
}

// Scenario returns the configuration for a named scenario, or nil if the
// scenario is not configured.
func (c *Config) Scenario(name string) *ScenarioConfig {
	for i := range c.Scenarios {
		if c.Scenarios[i].Name == name {
			return &c.Scenarios[i]
		}
	}
	return nil
}

func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}
