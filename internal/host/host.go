// Package host supplies the device side effects behind the HTTP API:
// applying camera configuration, recording start/stop and device status.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/events"
	"github.com/smazurov/spyglass/internal/logging"
	"github.com/smazurov/spyglass/internal/process"
)

// Status is the device part of the /status response.
type Status struct {
	// Battery is the charge in percent, -1 when the device has no battery.
	Battery    int
	FreeBytes  uint64
	TotalBytes uint64
	Uptime     time.Duration
}

// Reconfigurer applies a camera configuration to the capture side.
type Reconfigurer interface {
	Reconfigure(ctx context.Context, cfg camera.Config) error
}

// Option configures a Host.
type Option func(*Host)

// WithCapture routes ApplyConfig to r.
func WithCapture(r Reconfigurer) Option {
	return func(h *Host) { h.capture = r }
}

// WithBus publishes recording state events to bus.
func WithBus(bus *events.Bus) Option {
	return func(h *Host) { h.bus = bus }
}

// WithRecordCommand runs template while recording. {output} expands to the
// new file's path inside the recordings directory.
func WithRecordCommand(template string) Option {
	return func(h *Host) { h.recordCommand = template }
}

// WithPowerSupplyDir overrides /sys/class/power_supply.
func WithPowerSupplyDir(dir string) Option {
	return func(h *Host) { h.powerSupplyDir = dir }
}

// Host is the default implementation for a Linux device.
type Host struct {
	recordingsDir  string
	recordCommand  string
	powerSupplyDir string
	capture        Reconfigurer
	bus            *events.Bus
	logger         *slog.Logger
	started        time.Time

	mu           sync.Mutex
	recordCancel context.CancelFunc
	recordDone   chan struct{}
}

// New creates a host whose disk statistics and recordings refer to
// recordingsDir.
func New(recordingsDir string, opts ...Option) *Host {
	h := &Host{
		recordingsDir:  recordingsDir,
		powerSupplyDir: "/sys/class/power_supply",
		logger:         logging.GetLogger("host"),
		started:        time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ApplyConfig pushes cfg to the capture pipeline.
func (h *Host) ApplyConfig(ctx context.Context, cfg camera.Config) error {
	if h.capture == nil {
		return nil
	}
	return h.capture.Reconfigure(ctx, cfg)
}

// StartRecording starts the record command, if any.
func (h *Host) StartRecording(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.recordCommand != "" {
		if err := h.startRecorderLocked(); err != nil {
			return err
		}
	}
	h.logger.Info("Recording started")
	h.publishRecording(true)
	return nil
}

// StopRecording stops the record command and waits for it to exit.
func (h *Host) StopRecording(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.recordCancel != nil {
		h.recordCancel()
		<-h.recordDone
		h.recordCancel = nil
		h.recordDone = nil
	}
	h.logger.Info("Recording stopped")
	h.publishRecording(false)
	return nil
}

func (h *Host) startRecorderLocked() error {
	if h.recordingsDir == "" {
		return errors.New("no recordings directory configured")
	}
	if err := os.MkdirAll(h.recordingsDir, 0o755); err != nil {
		return fmt.Errorf("create recordings directory: %w", err)
	}

	output := filepath.Join(h.recordingsDir, time.Now().Format("spyglass-20060102-150405")+".mp4")
	command := process.Expand(h.recordCommand, map[string]string{"output": output})
	p := process.New("record", command, h.logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	h.recordCancel, h.recordDone = cancel, done

	go func() {
		defer close(done)
		code, err := p.Run(ctx, discardOutput)
		if ctx.Err() == nil {
			h.logger.Warn("Record command exited while recording", "exit_code", code, "error", err)
		}
	}()
	return nil
}

func (h *Host) publishRecording(active bool) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(events.RecordingStateChangedEvent{
		Recording: active,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Status reports battery, disk and uptime. Values that cannot be read are
// reported as -1 (battery) or 0.
func (h *Host) Status(_ context.Context) Status {
	st := Status{
		Battery: batteryLevel(h.powerSupplyDir),
		Uptime:  uptime(h.started),
	}

	free, total, err := diskUsage(existingDir(h.recordingsDir))
	if err != nil {
		h.logger.Debug("Failed to read disk usage", "path", h.recordingsDir, "error", err)
	} else {
		st.FreeBytes, st.TotalBytes = free, total
	}
	return st
}

// existingDir walks up from dir to the nearest directory that exists.
func existingDir(dir string) string {
	if dir == "" {
		return "."
	}
	dir = filepath.Clean(dir)
	for {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
