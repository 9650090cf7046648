package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/archive"
	"clipforge/internal/assets"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/presets"
	"clipforge/internal/services"
	"clipforge/internal/storage"
	"clipforge/internal/transform"
)

// Engine is the transform surface the handlers need. *transform.Runner is
// the production implementation.
type Engine interface {
	Stream(ctx context.Context, spec transform.Spec, w io.Writer) error
	Run(ctx context.Context, spec transform.Spec) <-chan transform.Event
}

// InspectFunc reports the duration in seconds of a media file. The production
// wiring uses ffprobe; tests substitute a stub.
type InspectFunc func(ctx context.Context, path string) (float64, error)

// StatusFunc produces the daemon summary for /api/status.
type StatusFunc func(ctx context.Context) any

// Options wires the Server to its collaborators.
type Options struct {
	Bind   string
	Logger *slog.Logger

	Uploads  *storage.UploadStore
	Outputs  *storage.OutputStore
	Runner   Engine
	Tracker  *jobs.Tracker
	Pipeline *archive.Pipeline
	Picker   *assets.Picker
	Presets  *presets.Store

	Inspect InspectFunc
	Status  StatusFunc

	// PreviewDuration is the default preview window in seconds.
	PreviewDuration float64
}

// Server is the HTTP API for uploads, previews, export jobs, and archives.
type Server struct {
	opts   Options
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
}

// New builds a Server. The listener is not opened until Start.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.PreviewDuration <= 0 {
		opts.PreviewDuration = 5
	}
	srv := &Server{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "api-server"),
	}
	srv.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler assembles the route table. Exposed separately so tests can drive
// the API through httptest without opening a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/preview", s.handlePreview)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/split", s.handleSplit)
	mux.HandleFunc("/api/progress", s.handleProgress)
	mux.HandleFunc("/api/jobs", s.handleJobList)
	mux.HandleFunc("/api/jobs/", s.handleJob)
	mux.HandleFunc("/api/download/", s.handleDownload)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

// Start opens the listener and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.opts.Bind)
	if bind == "" {
		return services.Wrap(services.ErrConfiguration, "server", "start", "api bind address is empty", nil)
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, letting in-flight requests finish briefly.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address after Start, for tests and status output.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a classified error onto its HTTP status.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	s.writeError(w, services.HTTPStatus(err), err.Error())
}
