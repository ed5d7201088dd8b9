package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/events"
	"github.com/smazurov/spyglass/internal/frameslot"
	"github.com/smazurov/spyglass/internal/logging"
	"github.com/smazurov/spyglass/internal/metrics"
	"github.com/smazurov/spyglass/internal/yuv"
)

// ErrRunning is returned by Start when the pipeline is already running.
var ErrRunning = errors.New("capture: pipeline already running")

var errSlotClosed = errors.New("capture: frame slot closed")

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBus publishes capture state and dropped frame events to bus.
func WithBus(bus *events.Bus) Option {
	return func(p *Pipeline) { p.bus = bus }
}

// WithDedupe skips frames whose pixels match the previous frame.
func WithDedupe(enabled bool) Option {
	return func(p *Pipeline) { p.dedupe = enabled }
}

// WithRestartDelay sets the pause before a failed source is restarted.
func WithRestartDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.restartDelay = d }
}

// Stats counts frames handled since the pipeline was created.
type Stats struct {
	Published  uint64
	Dropped    uint64
	Duplicates uint64
}

// Pipeline runs a Source and publishes its frames to a slot.
type Pipeline struct {
	source       Source
	slot         *frameslot.Slot
	bus          *events.Bus
	logger       *slog.Logger
	dedupe       bool
	restartDelay time.Duration

	mu     sync.Mutex
	base   context.Context
	cfg    camera.Config
	cancel context.CancelFunc
	done   chan struct{}

	quality atomic.Int32

	// owned by the run goroutine
	lastHash    uint64
	lastQuality int32
	haveHash    bool

	published  atomic.Uint64
	dropped    atomic.Uint64
	duplicates atomic.Uint64
}

// NewPipeline creates a stopped pipeline.
func NewPipeline(source Source, slot *frameslot.Slot, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:       source,
		slot:         slot,
		logger:       logging.GetLogger("capture"),
		restartDelay: 2 * time.Second,
		cfg:          camera.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs the source with cfg until ctx is cancelled or Stop is called.
func (p *Pipeline) Start(ctx context.Context, cfg camera.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrRunning
	}
	p.base = ctx
	p.startLocked(cfg)
	return nil
}

// Stop stops the source and waits for it to exit.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Reconfigure switches the pipeline to cfg. A change of JPEG quality alone
// applies to the next frame; anything else restarts the source. A stopped
// pipeline only records cfg for the next Start. It has the camera.Applier
// signature.
func (p *Pipeline) Reconfigure(_ context.Context, cfg camera.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		p.cfg = cfg
		return nil
	}

	prev := p.cfg
	p.cfg = cfg
	p.quality.Store(int32(cfg.JPEGQuality))

	prev.JPEGQuality = cfg.JPEGQuality
	if prev == cfg {
		p.logger.Debug("JPEG quality updated", "quality", cfg.JPEGQuality)
		return nil
	}

	p.logger.Info("Restarting capture", "resolution", cfg.Resolution(), "fps", cfg.FPS, "camera", cfg.Camera)
	p.stopLocked()
	p.startLocked(cfg)
	return nil
}

// Config returns the configuration the pipeline runs with.
func (p *Pipeline) Config() camera.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Running reports whether the pipeline was started and not stopped.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stats returns the frame counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Published:  p.published.Load(),
		Dropped:    p.dropped.Load(),
		Duplicates: p.duplicates.Load(),
	}
}

func (p *Pipeline) startLocked(cfg camera.Config) {
	ctx, cancel := context.WithCancel(p.base)
	p.cfg = cfg
	p.cancel = cancel
	p.done = make(chan struct{})
	p.quality.Store(int32(cfg.JPEGQuality))
	p.haveHash = false

	go p.run(ctx, cfg, p.done)
}

func (p *Pipeline) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

func (p *Pipeline) run(ctx context.Context, cfg camera.Config, done chan struct{}) {
	defer close(done)
	name := p.source.Name()

	for {
		p.logger.Info("Capture started", "source", name, "resolution", cfg.Resolution(), "fps", cfg.FPS)
		p.publishState(true, nil)

		err := p.source.Run(ctx, cfg, p.handle)

		if ctx.Err() != nil || errors.Is(err, errSlotClosed) {
			p.logger.Info("Capture stopped", "source", name)
			p.publishState(false, nil)
			return
		}
		if errors.Is(err, ErrUnsupportedSize) {
			p.logger.Error("Capture source cannot run with this configuration", "source", name, "error", err)
			p.publishState(false, err)
			<-ctx.Done()
			return
		}
		if err != nil {
			p.logger.Warn("Capture source failed", "source", name, "error", err, "restart_in", p.restartDelay)
		} else {
			p.logger.Info("Capture source ended", "source", name, "restart_in", p.restartDelay)
		}
		p.publishState(false, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.restartDelay):
		}
	}
}

// handle converts, encodes and publishes one frame. Only a closed slot
// stops the source.
func (p *Pipeline) handle(f RawFrame) error {
	nv21, err := yuv.ToNV21(f.Width, f.Height, f.Y, f.U, f.V)
	if err != nil {
		p.drop("convert", err)
		return nil
	}

	quality := p.quality.Load()
	if p.dedupe {
		sum := xxh3.Hash(nv21)
		if p.haveHash && sum == p.lastHash && quality == p.lastQuality {
			p.duplicates.Add(1)
			metrics.IncrementFramesDuplicate()
			return nil
		}
		p.lastHash, p.lastQuality, p.haveHash = sum, quality, true
	}

	data, err := yuv.EncodeJPEG(f.Width, f.Height, nv21, int(quality))
	if err != nil {
		p.drop("encode", err)
		return nil
	}

	if p.slot.Put(data) == 0 {
		return errSlotClosed
	}
	p.published.Add(1)
	metrics.IncrementFramesPublished(len(data))
	return nil
}

func (p *Pipeline) drop(reason string, err error) {
	n := p.dropped.Add(1)
	metrics.IncrementFramesDropped(reason)

	// first failure and then every 100th, a bad config fails every frame
	if n == 1 || n%100 == 0 {
		p.logger.Warn("Frame dropped", "reason", reason, "error", err, "dropped_total", n)
	}
	if p.bus != nil {
		p.bus.Publish(events.FrameDroppedEvent{
			Reason:    reason,
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

func (p *Pipeline) publishState(running bool, err error) {
	if p.bus == nil {
		return
	}
	ev := events.CaptureStateChangedEvent{
		Source:    p.source.Name(),
		Running:   running,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	p.bus.Publish(ev)
}
