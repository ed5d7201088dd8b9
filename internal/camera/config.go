// Package camera holds the live camera configuration.
package camera

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/spyglass/internal/events"
)

// Camera selectors.
const (
	Back  = 0
	Front = 1
)

// Config is an immutable camera configuration value.
type Config struct {
	Camera      int
	Width       int
	Height      int
	FPS         int
	JPEGQuality int
}

// Default returns the startup configuration: back camera, 1280x720 at 15 fps, quality 80.
func Default() Config {
	return Config{
		Camera:      Back,
		Width:       1280,
		Height:      720,
		FPS:         15,
		JPEGQuality: 80,
	}
}

// Resolution returns the frame size as a WIDTHxHEIGHT token.
func (c Config) Resolution() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// Update is a partial configuration keyed by the JSON field names
// camera, resolution, fps and jpegQuality.
type Update map[string]any

// Event describes c as a ConfigChangedEvent from source.
func (c Config) Event(source string) events.ConfigChangedEvent {
	return events.ConfigChangedEvent{
		Camera:      c.Camera,
		Resolution:  c.Resolution(),
		FPS:         c.FPS,
		JPEGQuality: c.JPEGQuality,
		Source:      source,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// ParseResolution splits a WIDTHxHEIGHT token. Both parts must be positive integers.
func ParseResolution(s string) (width, height int, ok bool) {
	w, h, found := strings.Cut(strings.TrimSpace(s), "x")
	if !found {
		return 0, 0, false
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// Merge applies u on top of current. Fields that are absent or unparseable
// keep the current value.
func Merge(current Config, u Update) Config {
	next := current

	if v, ok := intField(u, "camera"); ok {
		next.Camera = v
	}
	if raw, present := u["resolution"]; present {
		if s, isString := raw.(string); isString {
			if w, h, ok := ParseResolution(s); ok {
				next.Width, next.Height = w, h
			}
		}
	}
	if v, ok := intField(u, "fps"); ok {
		next.FPS = v
	}
	if v, ok := intField(u, "jpegQuality"); ok {
		next.JPEGQuality = v
	}
	return next
}

func intField(u Update, key string) (int, bool) {
	raw, present := u[key]
	if !present {
		return 0, false
	}
	return toInt(raw)
}

// toInt accepts JSON numbers (truncated toward zero), TOML integers and
// numeric strings.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
