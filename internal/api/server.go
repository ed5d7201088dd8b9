// Package api serves the spyglass HTTP endpoints with huma.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/spyglass/internal/api/models"
	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/events"
	"github.com/smazurov/spyglass/internal/frameslot"
	"github.com/smazurov/spyglass/internal/host"
	"github.com/smazurov/spyglass/internal/logging"
	"github.com/smazurov/spyglass/internal/recording"
	"github.com/smazurov/spyglass/internal/version"
)

// Host performs the device side effects of the API.
type Host interface {
	ApplyConfig(ctx context.Context, cfg camera.Config) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	Status(ctx context.Context) host.Status
}

// Options configures a Server.
type Options struct {
	Host          Host
	Store         *camera.Store
	Slot          *frameslot.Slot
	RecordingsDir string

	// EventBus is optional. Stream clients and config changes are
	// published to it.
	EventBus *events.Bus

	// StreamMaxWait ends an MJPEG stream that saw no new frame for this
	// long. Zero uses the encoder default.
	StreamMaxWait time.Duration

	// Optional endpoints. The default API serves only the camera routes.
	MetricsHandler http.Handler // GET /metrics
	APIDocs        bool         // /docs, /openapi.json, /schemas
	Events         bool         // GET /events (server-sent events)
}

// Server is the spyglass HTTP API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	handler    http.Handler
	httpServer *http.Server
	options    *Options
	store      *camera.Store
	slot       *frameslot.Slot
	host       Host
	recordings *recording.Controller
	eventBus   *events.Bus
	logger     *slog.Logger
}

// NewServer creates the API and registers the Host as the store's Applier.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("Spyglass", version.String())
	config.Info.Description = "MJPEG camera server: live stream, snapshots, configuration and recordings"
	config.Servers = []*huma.Server{}
	// no $schema links in response bodies
	config.CreateHooks = nil
	if !opts.APIDocs {
		config.OpenAPIPath = ""
		config.DocsPath = ""
		config.SchemasPath = ""
	}

	api := humago.New(mux, config)

	server := &Server{
		api:        api,
		mux:        mux,
		options:    opts,
		store:      opts.Store,
		slot:       opts.Slot,
		host:       opts.Host,
		recordings: recording.NewController(opts.RecordingsDir, opts.Host),
		eventBus:   opts.EventBus,
		logger:     logging.GetLogger("api"),
	}
	server.store.SetApplier(opts.Host.ApplyConfig)

	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	server.registerRoutes()
	mux.HandleFunc("/", notFound)

	server.handler = recoverer(server.logger, normalize(mux))
	return server
}

// Handler returns the root handler with path normalization and panic recovery.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Recordings returns the recording controller.
func (s *Server) Recordings() *recording.Controller {
	return s.recordings
}

// Start listens on addr and serves until Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting Spyglass API server", "addr", addr)
	if s.options.APIDocs {
		s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the listener and all connections. Stream loops end through
// their request contexts.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.registerVideoRoutes()
	s.registerConfigRoutes()
	s.registerRecordingRoutes()
	s.registerStatusRoutes()
	if s.options.Events && s.eventBus != nil {
		s.registerSSERoutes()
	}
}

func (s *Server) publish(ev events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(ev)
	}
}

func toModel(cfg camera.Config) models.CameraConfig {
	return models.CameraConfig{
		Camera:      cfg.Camera,
		Resolution:  cfg.Resolution(),
		FPS:         cfg.FPS,
		JPEGQuality: cfg.JPEGQuality,
	}
}
