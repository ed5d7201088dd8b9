package capture

import (
	"context"
	"time"

	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/yuv"
)

// colour bars in BT.601 limited range
var bars = [...]struct{ y, u, v byte }{
	{235, 128, 128}, // white
	{210, 16, 146},  // yellow
	{170, 166, 16},  // cyan
	{145, 54, 34},   // green
	{106, 202, 222}, // magenta
	{81, 90, 240},   // red
	{41, 240, 110},  // blue
	{16, 128, 128},  // black
}

// PatternOption configures a PatternSource.
type PatternOption func(*PatternSource)

// WithSemiPlanar emits interleaved chroma (pixel stride 2) the way many
// sensors deliver it.
func WithSemiPlanar() PatternOption {
	return func(s *PatternSource) { s.semiPlanar = true }
}

// WithRowPadding adds n bytes of padding to every plane row.
func WithRowPadding(n int) PatternOption {
	return func(s *PatternSource) { s.padding = max(n, 0) }
}

// PatternSource synthesizes scrolling colour bars at the configured frame rate.
type PatternSource struct {
	semiPlanar bool
	padding    int
}

// NewPatternSource creates a test pattern source.
func NewPatternSource(opts ...PatternOption) *PatternSource {
	s := &PatternSource{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *PatternSource) Name() string {
	return "pattern"
}

// Run implements Source.
func (s *PatternSource) Run(ctx context.Context, cfg camera.Config, emit func(RawFrame) error) error {
	ticker := time.NewTicker(time.Second / time.Duration(max(cfg.FPS, 1)))
	defer ticker.Stop()

	for n := 0; ; n++ {
		if err := emit(s.Frame(cfg.Width, cfg.Height, n)); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Frame renders frame number n of the pattern.
func (s *PatternSource) Frame(w, h, n int) RawFrame {
	cw, ch := (w+1)/2, (h+1)/2
	barW := max(w/len(bars), 1)
	shift := n * 4

	barAt := func(col int) int {
		return ((col + shift) / barW) % len(bars)
	}

	yStride := w + s.padding
	y := make([]byte, yStride*h)
	for row := 0; row < h; row++ {
		line := y[row*yStride:]
		for col := 0; col < w; col++ {
			line[col] = bars[barAt(col)].y
		}
	}
	frame := RawFrame{
		Width:  w,
		Height: h,
		Y:      yuv.Plane{Data: y, RowStride: yStride, PixelStride: 1},
	}

	if s.semiPlanar {
		stride := cw*2 + s.padding
		backing := make([]byte, stride*ch)
		for row := 0; row < ch; row++ {
			for c := 0; c < cw; c++ {
				b := bars[barAt(c*2)]
				backing[row*stride+2*c] = b.v
				backing[row*stride+2*c+1] = b.u
			}
		}
		frame.V = yuv.Plane{Data: backing, RowStride: stride, PixelStride: 2}
		frame.U = yuv.Plane{Data: backing[1:], RowStride: stride, PixelStride: 2}
		return frame
	}

	stride := cw + s.padding
	u := make([]byte, stride*ch)
	v := make([]byte, stride*ch)
	for row := 0; row < ch; row++ {
		for c := 0; c < cw; c++ {
			b := bars[barAt(c*2)]
			u[row*stride+c] = b.u
			v[row*stride+c] = b.v
		}
	}
	frame.U = yuv.Plane{Data: u, RowStride: stride, PixelStride: 1}
	frame.V = yuv.Plane{Data: v, RowStride: stride, PixelStride: 1}
	return frame
}
