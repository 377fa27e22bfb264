// Package api serves run status, an encode event stream and Prometheus
// metrics over HTTP while an encode is in progress.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/ffjob/internal/api/models"
	"github.com/smazurov/ffjob/internal/events"
	"github.com/smazurov/ffjob/internal/logging"
	"github.com/smazurov/ffjob/internal/metrics"
	"github.com/smazurov/ffjob/internal/metrics/exporters"
	"github.com/smazurov/ffjob/internal/version"
)

// Options configures the status server for one run.
type Options struct {
	RunID    string
	Command  []string
	Output   string
	EventBus *events.Bus
}

// Server is the status API for a single encode run.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	startedAt  time.Time
	logger     logging.Logger
}

// NewServer creates the status server and registers its routes.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("ffjob", version.Get().Version)
	config.Info.Description = "Status of a running ffmpeg encode job"
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	server := &Server{
		api:       api,
		mux:       mux,
		options:   opts,
		startedAt: time.Now(),
		logger:    logging.GetLogger("api"),
	}

	api.UseMiddleware(HTTPLoggingMiddleware)

	mux.Handle("GET /metrics", exporters.HTTPHandler())

	server.registerRoutes()
	return server
}

// GetMux returns the underlying mux, mainly for tests.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// Start listens on addr and blocks until the server is stopped.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting status API", "addr", addr)
	s.logger.Debug("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down, giving in-flight requests up to two seconds.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Debug("Stopping status API")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/api/run",
		Summary:     "Run status",
		Description: "Progress of the encode this process is running",
		Tags:        []string{"run"},
	}, func(_ context.Context, _ *struct{}) (*models.RunResponse, error) {
		return &models.RunResponse{Body: s.runStatus()}, nil
	})

	s.registerSSERoutes()
}

func (s *Server) runStatus() models.RunData {
	data := models.RunData{
		RunID:       s.options.RunID,
		Output:      s.options.Output,
		Command:     s.options.Command,
		StartedAt:   s.startedAt,
		TotalFrames: -1,
	}

	m := metrics.GetEncodeMetrics(s.options.RunID)
	if m == nil {
		return data
	}
	data.Running = m.Running
	data.Frames = m.Frames
	data.TotalFrames = m.TotalFrames
	data.FPS = m.FPS
	data.Speed = m.Speed
	if m.TotalFrames > 0 {
		pct := float64(m.Frames) / float64(m.TotalFrames) * 100
		data.Percent = &pct
	}
	if m.Finished {
		code := m.ExitCode
		data.ExitCode = &code
	}
	return data
}
