package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"membench/internal/harness"
	"membench/internal/slo"
	"membench/internal/testutil"
)

func testSource() ResultSource {
	return ResultSource{
		Benchmarks: func() []harness.OperationBenchmark {
			return []harness.OperationBenchmark{{
				OperationName: "badger-get",
				Layer:         "storage",
				Category:      slo.CategoryRead,
				P95LatencyMs:  42.1,
				Status:        slo.StatusPass,
			}}
		},
		LoadTests: func() []harness.LoadTestResult {
			return []harness.LoadTestResult{{
				ScenarioName: "steady",
				Concurrency:  100,
				SuccessCount: 9950,
				Status:       slo.StatusPass,
			}}
		},
		Scenarios: func() []harness.ScenarioResult {
			return []harness.ScenarioResult{{
				ScenarioName: "remember-recall",
				Status:       slo.StatusPass,
			}}
		},
		Summary: func() harness.RunSummary {
			return harness.RunSummary{Total: 1, Passed: 1}
		},
	}
}

func testRouter() http.Handler {
	srv := NewReportServer(":0", testSource(), testutil.TestLogger())
	return srv.SetupRoutes()
}

func TestBenchmarksEndpoint(t *testing.T) {
	router := testRouter()
	recorder := testutil.HTTPTestRecorder()

	router.ServeHTTP(recorder, testutil.MockHTTPRequest(http.MethodGet, "/api/v1/benchmarks", ""))

	testutil.AssertHTTPStatus(t, recorder, http.StatusOK)
	testutil.AssertHTTPHeader(t, recorder, "Content-Type", "application/json")

	var results []harness.OperationBenchmark
	if err := json.Unmarshal(recorder.Body.Bytes(), &results); err != nil {
		t.Fatalf("Response is not valid JSON: %v", err)
	}
	if len(results) != 1 || results[0].OperationName != "badger-get" {
		t.Errorf("Unexpected benchmarks payload: %+v", results)
	}
}

func TestLoadTestsEndpoint(t *testing.T) {
	router := testRouter()
	recorder := testutil.HTTPTestRecorder()

	router.ServeHTTP(recorder, testutil.MockHTTPRequest(http.MethodGet, "/api/v1/loadtests", ""))

	testutil.AssertHTTPStatus(t, recorder, http.StatusOK)
	testutil.AssertContains(t, recorder.Body.String(), "steady")
}

func TestScenariosEndpoint(t *testing.T) {
	router := testRouter()
	recorder := testutil.HTTPTestRecorder()

	router.ServeHTTP(recorder, testutil.MockHTTPRequest(http.MethodGet, "/api/v1/scenarios", ""))

	testutil.AssertHTTPStatus(t, recorder, http.StatusOK)
	testutil.AssertContains(t, recorder.Body.String(), "remember-recall")
}

func TestSummaryEndpoint(t *testing.T) {
	router := testRouter()
	recorder := testutil.HTTPTestRecorder()

	router.ServeHTTP(recorder, testutil.MockHTTPRequest(http.MethodGet, "/api/v1/summary", ""))

	testutil.AssertHTTPStatus(t, recorder, http.StatusOK)

	var summary harness.RunSummary
	if err := json.Unmarshal(recorder.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Response is not valid JSON: %v", err)
	}
	if summary.Total != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter()
	recorder := testutil.HTTPTestRecorder()

	router.ServeHTTP(recorder, testutil.MockHTTPRequest(http.MethodGet, "/api/v1/health", ""))

	testutil.AssertHTTPStatus(t, recorder, http.StatusOK)
	testutil.AssertContains(t, recorder.Body.String(), "ok")
}

func TestMarkdownReportEndpoint(t *testing.T) {
	router := testRouter()
	recorder := testutil.HTTPTestRecorder()

	router.ServeHTTP(recorder, testutil.MockHTTPRequest(http.MethodGet, "/report.md", ""))

	testutil.AssertHTTPStatus(t, recorder, http.StatusOK)
	testutil.AssertHTTPHeader(t, recorder, "Content-Type", "text/markdown; charset=utf-8")

	body := recorder.Body.String()
	for _, want := range []string{"# Performance Report", "## Benchmarks", "badger-get", "remember-recall"} {
		testutil.AssertContains(t, body, want)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := testRouter()
	recorder := testutil.HTTPTestRecorder()

	router.ServeHTTP(recorder, testutil.MockHTTPRequest(http.MethodPost, "/api/v1/benchmarks", "{}"))

	testutil.AssertHTTPStatus(t, recorder, http.StatusMethodNotAllowed)
}

func TestUnknownRoute(t *testing.T) {
	router := testRouter()
	recorder := testutil.HTTPTestRecorder()

	router.ServeHTTP(recorder, testutil.MockHTTPRequest(http.MethodGet, "/api/v1/unknown", ""))

	testutil.AssertHTTPStatus(t, recorder, http.StatusNotFound)
}
