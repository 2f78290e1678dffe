// Package http serves the operator surface of the DJ: health checks,
// Prometheus metrics and a JSON API over the engine.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"aidj/internal/core"
	"aidj/internal/flood"
	"aidj/internal/i18n"
)

const shutdownTimeout = 10 * time.Second

// Controller is the part of the DJ engine the API drives.
type Controller interface {
	Status() core.Status
	ProcessLog() []string
	Schedule() []core.ScheduleItem
	SetSchedule(items []core.ScheduleItem) []core.ScheduleItem
	RemoveScheduleItem(index int) ([]core.ScheduleItem, error)
	CreateSchedule(ctx context.Context, request string) ([]core.ScheduleItem, error)
	Tick(ctx context.Context) error
	Devices(ctx context.Context) []core.Device
	SetActiveDevice(ctx context.Context, deviceID string)
	Queue(ctx context.Context) []core.Track
	PlaybackState(ctx context.Context) *core.PlaybackState
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Deps are the collaborators of a Server. Controller and Metrics are
// required; a nil Floodgate disables request limiting and a nil Ready
// always reports ready.
type Deps struct {
	Controller Controller
	Metrics    *Metrics
	Floodgate  *flood.Floodgate
	Localizer  *i18n.Localizer
	Ready      func() bool
}

type Server struct {
	config     *core.ServerConfig
	logger     *zap.Logger
	server     *http.Server
	controller Controller
	metrics    *Metrics
	floodgate  *flood.Floodgate
	localizer  *i18n.Localizer
	ready      func() bool
}

func NewServer(config *core.ServerConfig, deps Deps, logger *zap.Logger) *Server {
	if deps.Localizer == nil {
		deps.Localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}
	if deps.Ready == nil {
		deps.Ready = func() bool { return true }
	}

	s := &Server{
		config:     config,
		logger:     logger,
		controller: deps.Controller,
		metrics:    deps.Metrics,
		floodgate:  deps.Floodgate,
		localizer:  deps.Localizer,
		ready:      deps.Ready,
	}
	s.server = createHTTPServer(config, s.setupRoutes())
	return s
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthzHandler)
	mux.HandleFunc("GET /readyz", s.readyzHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /{$}", homeHandler(s.logger))

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("GET /api/schedule", s.handleGetSchedule)
	mux.HandleFunc("PUT /api/schedule", s.handlePutSchedule)
	mux.HandleFunc("DELETE /api/schedule/{index}", s.handleDeleteScheduleItem)
	mux.HandleFunc("POST /api/requests", s.handleRequest)
	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("PUT /api/devices/active", s.handleSetActiveDevice)
	mux.HandleFunc("GET /api/queue", s.handleQueue)
	mux.HandleFunc("POST /api/player/{action}", s.handlePlayerAction)

	return mux
}

// Handler returns the routed handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","service":"aidj"}`))
}

func (s *Server) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready","service":"aidj"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready","service":"aidj"}`))
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(homePage)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

const homePage = `<!DOCTYPE html>
<html>
<head>
    <title>AI DJ</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
        code { background: #f4f4f4; padding: 2px 4px; }
    </style>
</head>
<body>
    <h1 class="header">🎧 AI DJ</h1>
    <p>Schedule-driven Spotify DJ</p>

    <h2>Endpoints</h2>
    <div class="endpoint">📻 <a href="/api/status">Status</a> - Current slot and engine state</div>
    <div class="endpoint">📜 <a href="/api/logs">Process log</a> - What the DJ did and why</div>
    <div class="endpoint">🗓️ <a href="/api/schedule">Schedule</a> - <code>GET</code> / <code>PUT</code> / <code>DELETE /api/schedule/{index}</code></div>
    <div class="endpoint">💬 <code>POST /api/requests</code> - Describe what you want to hear</div>
    <div class="endpoint">🔈 <a href="/api/devices">Devices</a> - <code>PUT /api/devices/active</code> to pick one</div>
    <div class="endpoint">🎶 <a href="/api/queue">Queue</a> - Upcoming tracks</div>
    <div class="endpoint">⏯️ <code>POST /api/player/{next|previous|pause|resume}</code></div>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`
