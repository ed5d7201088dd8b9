package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/events"
	"github.com/smazurov/spyglass/internal/frameslot"
	"github.com/smazurov/spyglass/internal/yuv"
)

// scriptedSource emits a fixed list of frames on every run, optionally
// fails the first run, then blocks until cancelled.
type scriptedSource struct {
	frames   func(cfg camera.Config) []RawFrame
	firstErr error

	mu   sync.Mutex
	runs []camera.Config
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Run(ctx context.Context, cfg camera.Config, emit func(RawFrame) error) error {
	s.mu.Lock()
	s.runs = append(s.runs, cfg)
	first := len(s.runs) == 1
	s.mu.Unlock()

	for _, f := range s.frames(cfg) {
		if err := emit(f); err != nil {
			return err
		}
	}
	if first && s.firstErr != nil {
		return s.firstErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *scriptedSource) runConfigs() []camera.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]camera.Config(nil), s.runs...)
}

func patternFrames(n int) func(camera.Config) []RawFrame {
	return func(cfg camera.Config) []RawFrame {
		src := NewPatternSource()
		out := make([]RawFrame, n)
		for i := range out {
			out[i] = src.Frame(cfg.Width, cfg.Height, i)
		}
		return out
	}
}

func staticFrames(n int) func(camera.Config) []RawFrame {
	return func(cfg camera.Config) []RawFrame {
		f := NewPatternSource().Frame(cfg.Width, cfg.Height, 0)
		out := make([]RawFrame, n)
		for i := range out {
			out[i] = f
		}
		return out
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var smallConfig = camera.Config{Width: 32, Height: 16, FPS: 15, JPEGQuality: 80}

func TestPipeline_PublishesJPEG(t *testing.T) {
	slot := frameslot.New()
	src := &scriptedSource{frames: patternFrames(3)}
	p := NewPipeline(src, slot)

	if err := p.Start(context.Background(), smallConfig); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	waitFor(t, "three frames", func() bool { return p.Stats().Published == 3 })

	f, ok := slot.Get()
	if !ok || f.Seq != 3 {
		t.Fatalf("slot = (seq %d, %v), want seq 3", f.Seq, ok)
	}
	img, err := jpeg.Decode(bytes.NewReader(f.Data))
	if err != nil {
		t.Fatalf("published frame is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("image size = %dx%d, want 32x16", b.Dx(), b.Dy())
	}
}

func TestPipeline_StartTwice(t *testing.T) {
	p := NewPipeline(&scriptedSource{frames: patternFrames(0)}, frameslot.New())
	if err := p.Start(context.Background(), smallConfig); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	if err := p.Start(context.Background(), smallConfig); !errors.Is(err, ErrRunning) {
		t.Errorf("second Start() = %v, want ErrRunning", err)
	}
	if !p.Running() {
		t.Error("Running() = false after Start")
	}
}

func TestPipeline_Dedupe(t *testing.T) {
	tests := []struct {
		dedupe        bool
		wantPublished uint64
		wantDup       uint64
	}{
		{dedupe: false, wantPublished: 4, wantDup: 0},
		{dedupe: true, wantPublished: 1, wantDup: 3},
	}
	for _, tt := range tests {
		slot := frameslot.New()
		p := NewPipeline(&scriptedSource{frames: staticFrames(4)}, slot, WithDedupe(tt.dedupe))
		if err := p.Start(context.Background(), smallConfig); err != nil {
			t.Fatal(err)
		}
		waitFor(t, "frames handled", func() bool {
			s := p.Stats()
			return s.Published+s.Duplicates == 4
		})
		p.Stop()

		if s := p.Stats(); s.Published != tt.wantPublished || s.Duplicates != tt.wantDup {
			t.Errorf("dedupe=%v: stats = %+v, want published %d duplicates %d",
				tt.dedupe, s, tt.wantPublished, tt.wantDup)
		}
	}
}

func TestPipeline_DropsBadFrames(t *testing.T) {
	slot := frameslot.New()
	slot.Put([]byte("previous"))

	bus := events.New()
	dropped := make(chan events.FrameDroppedEvent, 4)
	defer bus.Subscribe(func(e events.FrameDroppedEvent) { dropped <- e })()

	bad := RawFrame{
		Width:  4,
		Height: 4,
		Y:      yuv.Plane{Data: make([]byte, 3), RowStride: 4, PixelStride: 1},
	}
	src := &scriptedSource{frames: func(camera.Config) []RawFrame { return []RawFrame{bad} }}
	p := NewPipeline(src, slot, WithBus(bus))
	if err := p.Start(context.Background(), smallConfig); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	select {
	case e := <-dropped:
		if e.Reason != "convert" || e.Error == "" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no FrameDroppedEvent")
	}

	if s := p.Stats(); s.Dropped != 1 || s.Published != 0 {
		t.Errorf("stats = %+v, want one drop", s)
	}
	if f, _ := slot.Get(); string(f.Data) != "previous" || f.Seq != 1 {
		t.Errorf("slot changed after a dropped frame: %q seq %d", f.Data, f.Seq)
	}
}

func TestPipeline_Reconfigure(t *testing.T) {
	slot := frameslot.New()
	src := &scriptedSource{frames: patternFrames(1)}
	p := NewPipeline(src, slot)
	if err := p.Start(context.Background(), smallConfig); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()
	waitFor(t, "first run", func() bool { return len(src.runConfigs()) == 1 })

	// quality alone does not restart the source
	q := smallConfig
	q.JPEGQuality = 40
	if err := p.Reconfigure(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if n := len(src.runConfigs()); n != 1 {
		t.Errorf("quality change restarted the source (%d runs)", n)
	}

	bigger := q
	bigger.Width, bigger.Height = 64, 32
	if err := p.Reconfigure(context.Background(), bigger); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "second run", func() bool { return len(src.runConfigs()) == 2 })

	if got := src.runConfigs()[1]; got != bigger {
		t.Errorf("restarted with %+v, want %+v", got, bigger)
	}
	if got := p.Config(); got != bigger {
		t.Errorf("Config() = %+v, want %+v", got, bigger)
	}
}

func TestPipeline_ReconfigureStopped(t *testing.T) {
	src := &scriptedSource{frames: patternFrames(0)}
	p := NewPipeline(src, frameslot.New())

	if err := p.Reconfigure(context.Background(), smallConfig); err != nil {
		t.Fatal(err)
	}
	if p.Running() {
		t.Error("Reconfigure started a stopped pipeline")
	}
	if got := p.Config(); got != smallConfig {
		t.Errorf("Config() = %+v, want %+v", got, smallConfig)
	}
}

func TestPipeline_RestartsFailedSource(t *testing.T) {
	bus := events.New()
	states := make(chan events.CaptureStateChangedEvent, 8)
	defer bus.Subscribe(func(e events.CaptureStateChangedEvent) { states <- e })()

	src := &scriptedSource{frames: patternFrames(0), firstErr: errors.New("device lost")}
	p := NewPipeline(src, frameslot.New(), WithBus(bus), WithRestartDelay(10*time.Millisecond))
	if err := p.Start(context.Background(), smallConfig); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	waitFor(t, "restart", func() bool { return len(src.runConfigs()) >= 2 })

	sawFailure := false
	timeout := time.After(2 * time.Second)
	for !sawFailure {
		select {
		case e := <-states:
			sawFailure = !e.Running && e.Error == "device lost"
		case <-timeout:
			t.Fatal("no failure state event")
		}
	}
}

func TestPipeline_UnsupportedSizeWaitsForReconfigure(t *testing.T) {
	src := &scriptedSource{
		frames:   patternFrames(0),
		firstErr: fmt.Errorf("%w: 641x481", ErrUnsupportedSize),
	}
	p := NewPipeline(src, frameslot.New(), WithRestartDelay(5*time.Millisecond))
	if err := p.Start(context.Background(), smallConfig); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	time.Sleep(100 * time.Millisecond)
	if runs := len(src.runConfigs()); runs != 1 {
		t.Fatalf("source ran %d times, want 1", runs)
	}
	if !p.Running() {
		t.Error("pipeline stopped after an unsupported size")
	}

	next := smallConfig
	next.Width = 64
	if err := p.Reconfigure(context.Background(), next); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "run with new config", func() bool {
		runs := src.runConfigs()
		return len(runs) == 2 && runs[1] == next
	})
}

func TestPipeline_StopsWhenSlotCloses(t *testing.T) {
	slot := frameslot.New()
	src := NewPatternSource()
	p := NewPipeline(src, slot)

	cfg := smallConfig
	cfg.FPS = 200
	if err := p.Start(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "a frame", func() bool { return slot.Sequence() > 0 })

	slot.Close()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}
