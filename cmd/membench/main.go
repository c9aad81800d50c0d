package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"membench/internal/config"
	"membench/internal/harness"
	"membench/internal/logging"
	"membench/internal/report"
	"membench/internal/server"
	"membench/internal/slo"
	"membench/pkg/target"
)

var (
	configPath = flag.String("config", "", "Path to YAML configuration file")
	targetKind = flag.String("target", "sleep", "Target backend: sleep, sleep-jitter, http, redis, grpc")
	targetAddr = flag.String("addr", "localhost:6379", "Backend address for redis/grpc targets")
	targetURL  = flag.String("url", "http://localhost:8080/health", "URL for the http target")
	delay      = flag.Duration("delay", 5*time.Millisecond, "Base delay for sleep targets")
	jitter     = flag.Duration("jitter", 5*time.Millisecond, "Jitter for the sleep-jitter target")
	category   = flag.String("category", "read", "Operation category: read, write, system")
	jsonOutput = flag.Bool("json", false, "Output results as JSON instead of Markdown")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(&cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	op, closeTarget, err := buildOperation(ctx)
	if err != nil {
		log.Fatalf("Failed to set up target: %v", err)
	}
	defer closeTarget()

	command := args[0]
	switch command {
	case "bench":
		handleBench(ctx, cfg, logger, op, args[1:])
	case "load":
		handleLoad(ctx, cfg, logger, op, args[1:])
	case "ladder":
		handleLadder(ctx, cfg, logger, op, args[1:])
	case "scenario":
		handleScenario(ctx, cfg, logger, op, args[1:])
	case "isolation":
		handleIsolation(ctx, logger, args[1:])
	case "serve":
		handleServe(ctx, cfg, logger, op)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// buildOperation turns the target flags into a single operation plus a
// cleanup function for targets that hold connections.
func buildOperation(ctx context.Context) (harness.Operation, func(), error) {
	noop := func() {}

	switch *targetKind {
	case "sleep":
		return target.Sleep(*delay), noop, nil
	case "sleep-jitter":
		return target.SleepJitter(*delay, *jitter), noop, nil
	case "http":
		t := target.NewHTTPTarget(*targetURL, 30*time.Second)
		return t.GetOp(), noop, nil
	case "redis":
		t, err := target.NewRedisTarget(ctx, *targetAddr, "membench")
		if err != nil {
			return nil, nil, err
		}
		return t.PingOp(), func() { t.Close() }, nil
	case "grpc":
		t, err := target.NewGRPCHealthTarget(*targetAddr, "")
		if err != nil {
			return nil, nil, err
		}
		return t.CheckOp(), func() { t.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown target kind: %s", *targetKind)
	}
}

func operationCategory() slo.Category {
	switch strings.ToLower(*category) {
	case "write":
		return slo.CategoryWrite
	case "system":
		return slo.CategorySystem
	default:
		return slo.CategoryRead
	}
}

func handleBench(ctx context.Context, cfg *config.Config, logger *logging.Logger, op harness.Operation, args []string) {
	name := *targetKind
	if len(args) > 0 {
		name = args[0]
	}

	runner := harness.NewRunner(cfg.Targets.Categories, cfg.Harness.WarmupDuration, logger)
	result, err := runner.Benchmark(ctx, name, "target", operationCategory(), op, cfg.Harness.SampleSize)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	if *jsonOutput {
		outputJSON(result)
		return
	}
	writeOutput(cfg, report.ExportBenchmarkResults([]harness.OperationBenchmark{result}))
}

func handleLoad(ctx context.Context, cfg *config.Config, logger *logging.Logger, op harness.Operation, args []string) {
	concurrency := 100
	if len(args) > 0 {
		if _, err := fmt.Sscanf(args[0], "%d", &concurrency); err != nil {
			log.Fatalf("Invalid concurrency: %s", args[0])
		}
	}

	runner := harness.NewLoadRunner(cfg.Targets.Tiers, logger)
	result, err := runner.RunLoadTest(ctx, *targetKind, concurrency, cfg.Harness.LoadDuration, op)
	if err != nil {
		log.Fatalf("Load test failed: %v", err)
	}

	if *jsonOutput {
		outputJSON(result)
		return
	}
	writeOutput(cfg, report.ExportLoadTestResults([]harness.LoadTestResult{result}))
}

func handleLadder(ctx context.Context, cfg *config.Config, logger *logging.Logger, op harness.Operation, args []string) {
	name := *targetKind
	if len(args) > 0 {
		name = args[0]
	}

	loadRunner := harness.NewLoadRunner(cfg.Targets.Tiers, logger)
	analyzer := harness.NewDegradationAnalyzer(loadRunner, logger)

	reportOut, err := analyzer.Analyze(ctx, name, cfg.Harness.Ladder, cfg.Harness.LadderDuration, op)
	if err != nil {
		log.Fatalf("Degradation analysis failed: %v", err)
	}

	if *jsonOutput {
		outputJSON(reportOut)
		return
	}
	writeOutput(cfg, report.ExportDegradationReport(reportOut))
}

func handleScenario(ctx context.Context, cfg *config.Config, logger *logging.Logger, op harness.Operation, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: scenario <name>")
		fmt.Println("Configured scenarios:")
		for _, sc := range cfg.Scenarios {
			fmt.Printf("  %s (concurrency=%d iterations=%d threshold=%.2f)\n",
				sc.Name, sc.Concurrency, sc.Iterations, sc.PassThreshold)
		}
		os.Exit(1)
	}

	sc := cfg.Scenario(args[0])
	if sc == nil {
		log.Fatalf("Unknown scenario: %s", args[0])
	}

	workflow := harness.NewWorkflow(sc.Name, logger, scenarioSteps(sc.Name, op)...)
	result, err := workflow.Run(ctx, sc.Concurrency, sc.Iterations, sc.PassThreshold)
	if err != nil {
		log.Fatalf("Scenario failed: %v", err)
	}

	if *jsonOutput {
		outputJSON(result)
		return
	}
	writeOutput(cfg, report.ExportScenarioResults([]harness.ScenarioResult{result}))
}

// scenarioSteps maps the built-in scenario names onto step sequences over
// the selected target. Unknown scenarios get a single invoke step.
func scenarioSteps(name string, op harness.Operation) []harness.Step {
	switch name {
	case "remember-recall":
		return []harness.Step{
			{Name: "remember", Op: op},
			{Name: "recall", Op: op},
		}
	case "mixed-backend":
		return []harness.Step{
			{Name: "read", Op: op},
			{Name: "write", Op: op},
			{Name: "system", Op: op},
		}
	default:
		return []harness.Step{{Name: "invoke", Op: op}}
	}
}

func handleIsolation(ctx context.Context, logger *logging.Logger, args []string) {
	sessions, writes := 20, 5
	if len(args) > 0 {
		fmt.Sscanf(args[0], "%d", &sessions)
	}
	if len(args) > 1 {
		fmt.Sscanf(args[1], "%d", &writes)
	}

	checker := harness.NewIsolationChecker(logger)
	result, err := checker.Check(ctx, sessions, writes, func(ctx context.Context, sessionID string, seq int) (string, error) {
		return fmt.Sprintf("%s:value:%d", sessionID, seq), nil
	})
	if err != nil {
		log.Fatalf("Isolation check failed: %v", err)
	}

	if *jsonOutput {
		outputJSON(result)
		return
	}
	if result.Clean {
		fmt.Printf("isolation clean: %d sessions x %d writes\n", result.Sessions, result.WritesPerSession)
	} else {
		fmt.Printf("isolation FAILED: %d leaks\n", len(result.Leaks))
		for _, leak := range result.Leaks {
			fmt.Printf("  %s\n", leak)
		}
		os.Exit(1)
	}
}

// handleServe runs the full suite against the selected target and then
// serves the results over HTTP until interrupted.
func handleServe(ctx context.Context, cfg *config.Config, logger *logging.Logger, op harness.Operation) {
	addr := cfg.Report.ServeAddr
	if addr == "" {
		addr = ":8080"
	}

	runner := harness.NewRunner(cfg.Targets.Categories, cfg.Harness.WarmupDuration, logger)
	loadRunner := harness.NewLoadRunner(cfg.Targets.Tiers, logger)

	suite := harness.NewSuite(runner, logger)
	suite.Register(harness.BenchmarkSpec{
		Name: *targetKind, Layer: "target", Category: operationCategory(),
		SampleSize: cfg.Harness.SampleSize, Op: op,
	})
	if _, err := suite.RunAll(ctx); err != nil {
		log.Fatalf("Suite failed: %v", err)
	}

	if _, err := loadRunner.RunLoadTest(ctx, *targetKind, 100, cfg.Harness.LoadDuration, op); err != nil {
		log.Fatalf("Load test failed: %v", err)
	}

	workflow := harness.NewWorkflow("serve", logger, harness.Step{Name: "invoke", Op: op})
	for _, sc := range cfg.Scenarios {
		if _, err := workflow.Run(ctx, sc.Concurrency, sc.Iterations, sc.PassThreshold); err != nil {
			log.Fatalf("Scenario %s failed: %v", sc.Name, err)
		}
	}

	srv := server.NewReportServer(addr, server.ResultSource{
		Benchmarks: runner.Results,
		LoadTests:  loadRunner.Results,
		Scenarios:  workflow.Results,
		Summary:    runner.Summary,
	}, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(shutdownCtx)
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Report server failed: %v", err)
	}
}

func writeOutput(cfg *config.Config, rendered string) {
	if cfg.Report.OutputPath != "" {
		if err := os.WriteFile(cfg.Report.OutputPath, []byte(rendered), 0644); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		return
	}
	fmt.Print(rendered)
}

func outputJSON(data interface{}) {
	if err := report.WriteJSON(os.Stdout, data); err != nil {
		log.Fatalf("Failed to encode JSON: %v", err)
	}
}

func printUsage() {
	fmt.Printf(`Memory Backend Benchmark Harness

Usage:
  membench [options] <command> [args]

Commands:
  bench [name]          Run a sequential benchmark against the target
  load [concurrency]    Run a concurrent load test
  ladder [name]         Run the degradation ladder
  scenario <name>       Run a configured multi-step scenario
  isolation [n] [w]     Check session isolation with n sessions, w writes each
  serve                 Run the suite and serve results over HTTP

Options:
`)
	flag.PrintDefaults()
	fmt.Printf(`
Environment Variables:
  Configuration can be overridden with MB_-prefixed variables, e.g.
  MB_SAMPLE_SIZE, MB_LOAD_DURATION, MB_LADDER, MB_LOG_LEVEL.

Examples:
  membench bench
  membench -target redis -addr localhost:6379 load 100
  membench -target http -url http://localhost:8080/health ladder
  membench -json scenario remember-recall
`)
}
