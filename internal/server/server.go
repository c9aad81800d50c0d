// Package server exposes finished harness results over HTTP for report
// consumers (dashboards, the editor extension, curl). The harness core
// stays network-free; this surface only reads the immutable result lists
// after runs complete.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"membench/internal/harness"
	"membench/internal/logging"
	"membench/internal/report"
)

// ResultSource provides read access to the result lists of finished runs.
// Every getter returns a copy, so handlers never observe a run in flight.
type ResultSource struct {
	Benchmarks func() []harness.OperationBenchmark
	LoadTests  func() []harness.LoadTestResult
	Scenarios  func() []harness.ScenarioResult
	Summary    func() harness.RunSummary
}

// ReportServer serves harness results as JSON and Markdown.
type ReportServer struct {
	addr   string
	logger *logging.Logger
	source ResultSource
	server *http.Server
}

// NewReportServer creates a report server bound to the given address.
func NewReportServer(addr string, source ResultSource, logger *logging.Logger) *ReportServer {
	return &ReportServer{
		addr:   addr,
		logger: logger,
		source: source,
	}
}

// SetupRoutes configures the report routes.
func (s *ReportServer) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/benchmarks", s.handleBenchmarks).Methods(http.MethodGet)
	v1.HandleFunc("/loadtests", s.handleLoadTests).Methods(http.MethodGet)
	v1.HandleFunc("/scenarios", s.handleScenarios).Methods(http.MethodGet)
	v1.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	v1.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/report.md", s.handleMarkdown).Methods(http.MethodGet)

	return router
}

// Start starts the report server and blocks until it stops.
func (s *ReportServer) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.SetupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("Starting report server", "address", s.addr)
	return s.server.ListenAndServe()
}

// Stop stops the report server gracefully.
func (s *ReportServer) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping report server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *ReportServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := report.WriteJSON(w, v); err != nil {
		s.logger.WithError(err).Error("Failed to encode report response")
	}
}

func (s *ReportServer) handleBenchmarks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.source.Benchmarks())
}

func (s *ReportServer) handleLoadTests(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.source.LoadTests())
}

func (s *ReportServer) handleScenarios(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.source.Scenarios())
}

func (s *ReportServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.source.Summary())
}

func (s *ReportServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *ReportServer) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")

	w.Write([]byte("# Performance Report\n\n"))
	w.Write([]byte(report.ExportSummary(s.source.Summary())))
	w.Write([]byte("\n## Benchmarks\n\n"))
	w.Write([]byte(report.ExportBenchmarkResults(s.source.Benchmarks())))
	w.Write([]byte("\n## Load Tests\n\n"))
	w.Write([]byte(report.ExportLoadTestResults(s.source.LoadTests())))
	w.Write([]byte("\n## Scenarios\n\n"))
	w.Write([]byte(report.ExportScenarioResults(s.source.Scenarios())))
}
