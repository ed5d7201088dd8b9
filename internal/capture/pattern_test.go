package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/yuv"
)

func TestPatternSource_FramesConvert(t *testing.T) {
	tests := []struct {
		name string
		opts []PatternOption
	}{
		{"planar", nil},
		{"semi-planar", []PatternOption{WithSemiPlanar()}},
		{"padded planar", []PatternOption{WithRowPadding(16)}},
		{"padded semi-planar", []PatternOption{WithSemiPlanar(), WithRowPadding(8)}},
	}

	plain := NewPatternSource().Frame(64, 32, 3)
	want, err := yuv.ToNV21(64, 32, plain.Y, plain.U, plain.V)
	if err != nil {
		t.Fatal(err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewPatternSource(tt.opts...).Frame(64, 32, 3)
			got, err := yuv.ToNV21(f.Width, f.Height, f.Y, f.U, f.V)
			if err != nil {
				t.Fatalf("ToNV21: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Error("layout changed the converted pixels")
			}
		})
	}
}

func TestPatternSource_Scrolls(t *testing.T) {
	s := NewPatternSource()
	a := s.Frame(64, 16, 0)
	b := s.Frame(64, 16, 1)
	if bytes.Equal(a.Y.Data, b.Y.Data) {
		t.Error("consecutive frames are identical")
	}
}

func TestPatternSource_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := camera.Config{Width: 32, Height: 16, FPS: 100, JPEGQuality: 80}

	count := 0
	err := NewPatternSource().Run(ctx, cfg, func(f RawFrame) error {
		count++
		if f.Width != 32 || f.Height != 16 {
			t.Errorf("frame size = %dx%d", f.Width, f.Height)
		}
		if count == 3 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if count < 3 {
		t.Errorf("emitted %d frames, want at least 3", count)
	}
}

func TestPatternSource_EmitErrorStops(t *testing.T) {
	stop := errors.New("stop")
	cfg := camera.Config{Width: 8, Height: 8, FPS: 1000}

	done := make(chan error, 1)
	go func() {
		done <- NewPatternSource().Run(context.Background(), cfg, func(RawFrame) error { return stop })
	}()

	select {
	case err := <-done:
		if !errors.Is(err, stop) {
			t.Errorf("Run() = %v, want emit error", err)
		}
	case <-time.After(time.Second):
		t.Fatal("source did not stop on emit error")
	}
}
