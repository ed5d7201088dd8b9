// Package capture produces camera frames and publishes them as JPEG to the
// frame slot.
//
// A Source hands out raw planar YUV 4:2:0 frames. The Pipeline converts each
// frame to NV21, encodes it and stores the result in a frameslot.Slot.
// Frames that fail conversion are dropped and the slot keeps its previous
// frame.
package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/yuv"
)

// RawFrame is one planar 4:2:0 frame as delivered by a sensor.
type RawFrame struct {
	Width  int
	Height int
	Y      yuv.Plane
	U      yuv.Plane
	V      yuv.Plane
}

// Source produces frames for cfg until ctx is cancelled or it fails.
// emit must not retain the frame after it returns; a non-nil error from emit
// stops the source and is returned.
type Source interface {
	Name() string
	Run(ctx context.Context, cfg camera.Config, emit func(RawFrame) error) error
}

// ErrUnsupportedSize is returned by a source that cannot deliver frames of
// the configured size. The pipeline does not restart it until the
// configuration changes.
var ErrUnsupportedSize = errors.New("capture: unsupported frame size")

// checkSize rejects sizes that cannot be split into 4:2:0 planes.
func checkSize(cfg camera.Config) error {
	if cfg.Width < 2 || cfg.Height < 2 || cfg.Width%2 != 0 || cfg.Height%2 != 0 {
		return fmt.Errorf("%w: %s, width and height must be even", ErrUnsupportedSize, cfg.Resolution())
	}
	return nil
}
