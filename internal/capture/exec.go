package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/process"
	"github.com/smazurov/spyglass/internal/yuv"
)

// DefaultCommand captures from the first V4L2 device as raw I420.
const DefaultCommand = "ffmpeg -hide_banner -loglevel warning -f v4l2 -framerate {fps} -video_size {width}x{height} " +
	"-i /dev/video{camera} -f rawvideo -pix_fmt yuv420p -"

// ExecSource runs an external command that writes packed I420 frames to
// stdout. The command template may use {width}, {height}, {fps}, {camera}
// and {resolution}.
type ExecSource struct {
	template string
	logger   *slog.Logger
	opts     []process.Option
}

// NewExecSource creates a source running template.
func NewExecSource(template string, logger *slog.Logger, opts ...process.Option) *ExecSource {
	return &ExecSource{
		template: template,
		logger:   logger,
		opts:     append([]process.Option{process.WithLogParser(parseFFmpegLine)}, opts...),
	}
}

// Name implements Source.
func (s *ExecSource) Name() string {
	return "exec"
}

// CommandFor expands the template for cfg.
func (s *ExecSource) CommandFor(cfg camera.Config) string {
	return process.Expand(s.template, map[string]string{
		"width":      strconv.Itoa(cfg.Width),
		"height":     strconv.Itoa(cfg.Height),
		"fps":        strconv.Itoa(cfg.FPS),
		"camera":     strconv.Itoa(cfg.Camera),
		"resolution": cfg.Resolution(),
	})
}

// Run implements Source. A clean command exit returns nil. Odd frame sizes
// fail with ErrUnsupportedSize before the command starts.
func (s *ExecSource) Run(ctx context.Context, cfg camera.Config, emit func(RawFrame) error) error {
	if err := checkSize(cfg); err != nil {
		return err
	}
	p := process.New("capture", s.CommandFor(cfg), s.logger, s.opts...)
	code, err := p.Run(ctx, func(stdout io.Reader) error {
		return ReadFrames(stdout, cfg.Width, cfg.Height, emit)
	})
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if code != 0 {
		return fmt.Errorf("capture command exited with code %d", code)
	}
	return nil
}

// ReadFrames reads packed w×h I420 frames from r until EOF. A partial
// trailing frame is an error.
func ReadFrames(r io.Reader, w, h int, emit func(RawFrame) error) error {
	buf := make([]byte, yuv.NV21Size(w, h))
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("truncated %dx%d frame: %w", w, h, err)
			}
			return err
		}
		y, u, v, err := yuv.SplitI420(w, h, buf)
		if err != nil {
			return err
		}
		if err := emit(RawFrame{Width: w, Height: h, Y: y, U: u, V: v}); err != nil {
			return err
		}
	}
}

// parseFFmpegLine picks a log level for an ffmpeg stderr line.
func parseFFmpegLine(line string) (string, string) {
	switch {
	case containsAny(line, "Error", "error", "Invalid", "No such"):
		return "error", line
	case containsAny(line, "Warning", "warning", "deprecated"):
		return "warning", line
	}
	return "debug", line
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
