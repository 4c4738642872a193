// Package health serves the operational HTTP surface: liveness, readiness with
// named dependency checks, and the status of the scheduled jobs.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-engine/internal/models"
)

const checkTimeout = 3 * time.Second

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// JobStatusProvider exposes the latest scheduled job runs.
type JobStatusProvider interface {
	Latest() []models.JobRun
	Recent() []models.JobRun
}

// Check reports whether one dependency is usable
type Check func(ctx context.Context) error

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// JobStatus summarizes one scheduled job
type JobStatus struct {
	Name    string         `json:"name"`
	LastRun *models.JobRun `json:"last_run,omitempty"`
	// Stale is set when the last run is older than the job's allowed gap
	Stale bool `json:"stale"`
}

// JobsResponse represents the JSON response for the job status endpoint.
type JobsResponse struct {
	Service string          `json:"service"`
	Jobs    []JobStatus     `json:"jobs"`
	Recent  []models.JobRun `json:"recent"`
}

// Server is a lightweight HTTP server for health check endpoints.
type Server struct {
	serviceName string
	version     string
	commit      string
	port        string
	server      *http.Server
	logger      *logrus.Logger
	checks      map[string]Check
	jobs        JobStatusProvider
	staleAfter  map[string]time.Duration
	metrics     http.Handler
	metricsPath string
	now         func() time.Time
	mu          sync.RWMutex
	ready       bool
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        string
	Logger      *logrus.Logger
	// DB is registered as the "database" readiness check when set
	DB DatabasePinger
	// Checks are extra named readiness checks
	Checks map[string]Check
	Jobs   JobStatusProvider
	// StaleAfter is the longest acceptable age of a job's last run, by job name
	StaleAfter map[string]time.Duration
	// Metrics is mounted at MetricsPath when set
	Metrics     http.Handler
	MetricsPath string
}

// NewServer creates a new health check server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = os.Getenv("HEALTH_PORT")
	}
	if port == "" {
		port = "8080"
	}

	checks := make(map[string]Check, len(cfg.Checks)+1)
	for name, check := range cfg.Checks {
		checks[name] = check
	}
	if cfg.DB != nil {
		checks["database"] = cfg.DB.Ping
	}

	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		port:        port,
		logger:      cfg.Logger,
		checks:      checks,
		jobs:        cfg.Jobs,
		staleAfter:  cfg.StaleAfter,
		metrics:     cfg.Metrics,
		metricsPath: cfg.MetricsPath,
		now:         time.Now,
	}
}

// Port returns the port the server listens on.
func (s *Server) Port() string {
	return s.port
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the routes served by the health server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/jobs", s.handleJobs)
	if s.metrics != nil {
		path := s.metricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, s.metrics)
	}
	return mux
}

// Start serves in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.log().WithFields(logrus.Fields{
			"port":    s.port,
			"service": s.serviceName,
		}).Info("Health check server starting")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log().WithError(err).Error("Health check server error")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.log().WithError(err).Warn("Health check server shutdown failed")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health check server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	s.log().Info("Health check server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) log() logrus.FieldLogger {
	if s.logger == nil {
		return logrus.New().WithField("component", "health")
	}
	return s.logger.WithField("component", "health")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: s.serviceName})
}

// handleReady runs every named check; any failure makes the service not ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	results := map[string]string{"service": "ok"}
	healthy := s.IsReady()
	if !healthy {
		results["service"] = "not_ready"
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			healthy = false
			results[name] = "error: " + err.Error()
			continue
		}
		results[name] = "ok"
	}

	response := ReadyResponse{
		Status:   "ok",
		Service:  s.serviceName,
		Checks:   results,
		Duration: s.now().Sub(start).String(),
	}
	code := http.StatusOK
	if !healthy {
		response.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

// handleJobs reports the last run of every job and flags jobs that stopped running.
func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	response := JobsResponse{
		Service: s.serviceName,
		Jobs:    []JobStatus{},
		Recent:  []models.JobRun{},
	}

	latest := make(map[string]models.JobRun)
	if s.jobs != nil {
		for _, run := range s.jobs.Latest() {
			latest[run.JobName] = run
		}
		response.Recent = append(response.Recent, s.jobs.Recent()...)
	}

	names := make(map[string]bool, len(latest)+len(s.staleAfter))
	for name := range latest {
		names[name] = true
	}
	for name := range s.staleAfter {
		names[name] = true
	}

	now := s.now()
	for name := range names {
		status := JobStatus{Name: name}
		run, ok := latest[name]
		if ok {
			status.LastRun = &run
		}
		if limit, tracked := s.staleAfter[name]; tracked && limit > 0 {
			// a job that never ran since startup is not stale yet
			status.Stale = ok && now.Sub(run.StartedAt) > limit
		}
		response.Jobs = append(response.Jobs, status)
	}
	sort.Slice(response.Jobs, func(i, j int) bool { return response.Jobs[i].Name < response.Jobs[j].Name })

	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
