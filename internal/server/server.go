// Package server exposes the assistant's HTTP surface: image upload with
// interaction dispatch, the stored-image viewer, one-shot mode sounds, and
// the operational endpoints (health, readiness, Prometheus metrics).
//
// Handlers translate the orchestrator's error taxonomy to HTTP status codes:
// a busy pipeline is 409, a failed remote provider is 502, everything else
// that breaks a turn is 500.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/argusworks/argus/internal/health"
	"github.com/argusworks/argus/internal/imagestore"
	"github.com/argusworks/argus/internal/notify"
	"github.com/argusworks/argus/internal/observe"
	"github.com/argusworks/argus/internal/turn"
)

// maxUploadBytes caps the multipart form size of /upload. Device cameras
// send small JPEGs; 16 MiB leaves generous headroom.
const maxUploadBytes = 16 << 20

// Runner executes one assistant interaction. *turn.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, mode string) (answer string, err error)
}

// SoundPlayer plays a one-shot notification sound. *notify.Controller
// satisfies it.
type SoundPlayer interface {
	PlayOnce(id string)
}

// Server holds the HTTP handler dependencies.
type Server struct {
	runner  Runner
	images  *imagestore.Store
	sounds  SoundPlayer
	health  *health.Handler
	logger  *slog.Logger
	metrics *observe.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the slog logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the metrics sink used by the HTTP middleware.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth sets the health handler serving /healthz and /readyz.
// Without it the server answers liveness only.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// New creates a Server.
func New(runner Runner, images *imagestore.Store, sounds SoundPlayer, opts ...Option) (*Server, error) {
	if runner == nil || images == nil || sounds == nil {
		return nil, errors.New("server: runner, images, and sounds must be set")
	}
	s := &Server{
		runner: runner,
		images: images,
		sounds: sounds,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = health.New()
	}
	return s, nil
}

// Handler returns the full route table wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /view_image", s.handleViewImage)
	mux.HandleFunc("POST /mode", s.handleMode)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)

	return observe.Middleware(s.metrics)(mux)
}

// uploadResponse is the JSON body of a successful /upload.
type uploadResponse struct {
	Status string `json:"status"`
	Answer string `json:"answer"`
}

// handleUpload receives a camera image plus a status field naming the
// interaction mode, stores the image, and runs the interaction. The request
// blocks until the answer has been spoken; the device client waits for it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart form: %v", err)
		return
	}

	mode := r.FormValue("status")
	if mode == "" {
		httpError(w, http.StatusBadRequest, "missing status field")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "missing file field: %v", err)
		return
	}
	defer file.Close()

	if err := s.images.Save(file); err != nil {
		s.logger.Error("saving uploaded image failed", "error", err)
		httpError(w, http.StatusInternalServerError, "storing image failed")
		return
	}

	answer, err := s.runner.Run(r.Context(), mode)
	if err != nil {
		s.writeRunError(w, mode, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Status: "ok", Answer: answer})
}

// handleViewImage serves the most recently uploaded image.
func (s *Server) handleViewImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.images.Read()
	if errors.Is(err, imagestore.ErrNoImage) {
		httpError(w, http.StatusNotFound, "no image uploaded yet")
		return
	}
	if err != nil {
		s.logger.Error("reading stored image failed", "error", err)
		httpError(w, http.StatusInternalServerError, "reading image failed")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

// handleMode plays the one-shot confirmation sound for a mode switch on the
// device, System_<mode> from the sound directory.
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	mode := r.FormValue("mode")
	if mode == "" {
		httpError(w, http.StatusBadRequest, "missing mode field")
		return
	}
	s.sounds.PlayOnce(mode)
	s.metrics.RecordNotification(r.Context(), mode)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeRunError maps orchestrator errors to HTTP status codes.
func (s *Server) writeRunError(w http.ResponseWriter, mode string, err error) {
	var remote *turn.RemoteError
	switch {
	case errors.Is(err, turn.ErrBusy):
		httpError(w, http.StatusConflict, "another interaction is in progress")
	case errors.Is(err, turn.ErrUnknownMode):
		httpError(w, http.StatusBadRequest, "unknown status %q", mode)
	case errors.Is(err, imagestore.ErrNoImage):
		httpError(w, http.StatusNotFound, "no image uploaded yet")
	case errors.As(err, &remote):
		s.logger.Error("interaction failed at remote provider", "mode", mode, "error", err)
		httpError(w, http.StatusBadGateway, "remote provider failed: %s", remote.Op)
	default:
		s.logger.Error("interaction failed", "mode", mode, "error", err)
		httpError(w, http.StatusInternalServerError, "interaction failed")
	}
}

// httpError writes a JSON error body with the given status.
func httpError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  fmt.Sprintf(format, args...),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

var (
	_ Runner      = (*turn.Orchestrator)(nil)
	_ SoundPlayer = (*notify.Controller)(nil)
)
