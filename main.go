package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/spyglass/cmd"
	"github.com/smazurov/spyglass/internal/api"
	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/capture"
	"github.com/smazurov/spyglass/internal/config"
	"github.com/smazurov/spyglass/internal/events"
	"github.com/smazurov/spyglass/internal/frameslot"
	"github.com/smazurov/spyglass/internal/host"
	"github.com/smazurov/spyglass/internal/logging"
	"github.com/smazurov/spyglass/internal/metrics"
	"github.com/smazurov/spyglass/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"spyglass.toml"`

	// Server settings
	Port            string `help:"Port to listen on" short:"p" default:":4747" toml:"server.port" env:"SERVER_PORT"`
	StreamMaxWaitMs int    `help:"End an MJPEG stream after this long without a new frame" default:"10000" toml:"server.stream_max_wait_ms" env:"SERVER_STREAM_MAX_WAIT_MS"`
	Docs            bool   `help:"Serve OpenAPI docs at /docs" default:"false" toml:"server.api_docs" env:"SERVER_API_DOCS"`
	Events          bool   `help:"Serve server-sent events at /events" default:"false" toml:"server.events" env:"SERVER_EVENTS"`
	Metrics         bool   `help:"Serve Prometheus metrics at /metrics" default:"false" toml:"server.metrics" env:"SERVER_METRICS"`

	// Camera settings, also hot-reloaded from the [camera] table
	Camera     int    `help:"Camera selector (0 = back, 1 = front)" default:"0" toml:"camera.camera" env:"CAMERA"`
	Resolution string `help:"Frame size as WIDTHxHEIGHT" default:"1280x720" toml:"camera.resolution" env:"CAMERA_RESOLUTION"`
	Fps        int    `help:"Target frame rate" default:"15" toml:"camera.fps" env:"CAMERA_FPS"`
	Quality    int    `help:"JPEG quality (1-100)" default:"80" toml:"camera.jpeg_quality" env:"CAMERA_JPEG_QUALITY"`

	// Capture settings
	CaptureSource         string `help:"Frame source: pattern or exec" default:"pattern" toml:"capture.source" env:"CAPTURE_SOURCE"`
	CaptureCommand        string `help:"Command writing raw I420 frames to stdout ({width} {height} {fps} {camera} {resolution})" default:"" toml:"capture.command" env:"CAPTURE_COMMAND"`
	CaptureDedupe         bool   `help:"Skip frames identical to the previous one" default:"false" toml:"capture.dedupe" env:"CAPTURE_DEDUPE"`
	CaptureRestartDelayMs int    `help:"Delay before restarting a failed capture source" default:"2000" toml:"capture.restart_delay_ms" env:"CAPTURE_RESTART_DELAY_MS"`

	// Recording settings
	RecordingsDir    string `help:"Directory holding recordings" default:"recordings" toml:"recordings.dir" env:"RECORDINGS_DIR"`
	RecordingCommand string `help:"Command run while recording ({output} is the new file)" default:"" toml:"recordings.command" env:"RECORDINGS_COMMAND"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP      string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingCapture   string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingCamera    string `help:"Camera config logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingHost      string `help:"Host logging level" default:"info" toml:"logging.host" env:"LOGGING_HOST"`
	LoggingRecording string `help:"Recording logging level" default:"info" toml:"logging.recording" env:"LOGGING_RECORDING"`
	LoggingConfig    string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

// cameraUpdate returns the camera options as a partial update so that
// invalid values fall back the same way API updates do.
func (o *Options) cameraUpdate() camera.Update {
	return camera.Update{
		"camera":      o.Camera,
		"resolution":  o.Resolution,
		"fps":         o.Fps,
		"jpegQuality": o.Quality,
	}
}

func newSource(opts *Options) capture.Source {
	switch opts.CaptureSource {
	case "exec":
		command := opts.CaptureCommand
		if command == "" {
			command = capture.DefaultCommand
		}
		return capture.NewExecSource(command, logging.GetLogger("capture"))
	default:
		return capture.NewPatternSource()
	}
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"api":       opts.LoggingAPI,
				"http":      opts.LoggingHTTP,
				"capture":   opts.LoggingCapture,
				"camera":    opts.LoggingCamera,
				"host":      opts.LoggingHost,
				"recording": opts.LoggingRecording,
				"config":    opts.LoggingConfig,
			},
		})
		logger := logging.GetLogger("main")
		logger.Info("Spyglass starting", "version", version.String(), "config", opts.Config)

		eventBus := events.New()
		slot := frameslot.New()
		store := camera.NewStore(camera.Merge(camera.Default(), opts.cameraUpdate()))

		pipeline := capture.NewPipeline(newSource(opts), slot,
			capture.WithBus(eventBus),
			capture.WithDedupe(opts.CaptureDedupe),
			capture.WithRestartDelay(time.Duration(opts.CaptureRestartDelayMs)*time.Millisecond))

		hostOpts := []host.Option{host.WithCapture(pipeline), host.WithBus(eventBus)}
		if opts.RecordingCommand != "" {
			hostOpts = append(hostOpts, host.WithRecordCommand(opts.RecordingCommand))
		}
		device := host.New(opts.RecordingsDir, hostOpts...)

		apiOpts := &api.Options{
			Host:          device,
			Store:         store,
			Slot:          slot,
			RecordingsDir: opts.RecordingsDir,
			EventBus:      eventBus,
			StreamMaxWait: time.Duration(opts.StreamMaxWaitMs) * time.Millisecond,
			APIDocs:       opts.Docs,
			Events:        opts.Events,
		}
		unsubscribeMetrics := func() {}
		if opts.Metrics {
			apiOpts.MetricsHandler = metrics.Handler()
			unsubscribeMetrics = metrics.Subscribe(eventBus)
		}
		server := api.NewServer(apiOpts)

		initialSection, _ := config.LoadCameraSection(opts.Config)
		cameraChanges := config.NewCameraChanges(initialSection)

		watcher := config.NewConfigWatcher(opts.Config, config.LoadCameraSection, logging.GetLogger("config"))
		watcher.OnReload(func(section camera.Update) {
			update := cameraChanges.Next(section)
			if len(update) == 0 {
				logger.Debug("Config file changed, camera section unchanged")
				return
			}
			cfg, err := store.ApplyPartial(context.Background(), update)
			eventBus.Publish(cfg.Event("file"))
			if err != nil {
				logger.Warn("Failed to apply reloaded camera config", "error", err)
				return
			}
			logger.Info("Camera config reloaded", "resolution", cfg.Resolution(), "fps", cfg.FPS)
		})

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if startErr := pipeline.Start(ctx, store.Get()); startErr != nil {
				logger.Error("Failed to start capture", "error", startErr)
				os.Exit(1)
			}

			if _, statErr := os.Stat(opts.Config); statErr == nil {
				if watchErr := watcher.Start(); watchErr != nil {
					logger.Warn("Config hot reload disabled", "error", watchErr)
				}
			}

			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}

			if server.Recordings().Recording() {
				if _, stopErr := server.Recordings().Stop(context.Background()); stopErr != nil {
					logger.Warn("Error stopping recording", "error", stopErr)
				}
			}

			// capture first so the closed slot is not mistaken for a failure
			cancel()
			pipeline.Stop()
			slot.Close()
			unsubscribeMetrics()
		})
	})

	cli.Root().Use = "spyglass"
	cli.Root().Short = "MJPEG camera server"
	cli.Root().Version = version.String()

	cli.Root().AddCommand(cmd.CreateConvertCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}
