package config

import (
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/spyglass/internal/camera"
)

// cameraKeys maps TOML keys of the [camera] section to update fields.
var cameraKeys = map[string]string{
	"camera":       "camera",
	"resolution":   "resolution",
	"fps":          "fps",
	"jpeg_quality": "jpegQuality",
	"jpegQuality":  "jpegQuality",
}

// LoadCameraSection reads the [camera] table of a TOML file as a partial
// camera update. A file without the table yields an empty update.
//
//	[camera]
//	camera = 0
//	resolution = "1280x720"
//	fps = 15
//	jpeg_quality = 80
func LoadCameraSection(path string) (camera.Update, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Camera map[string]any `toml:"camera"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	update := camera.Update{}
	for key, value := range raw.Camera {
		if field, ok := cameraKeys[key]; ok {
			update[field] = value
		}
	}
	return update, nil
}

// CameraChanges remembers the last loaded [camera] section so a reload only
// carries the keys that were edited. Settings changed through the API then
// survive saves that touch other parts of the file.
type CameraChanges struct {
	mu   sync.Mutex
	last camera.Update
}

// NewCameraChanges starts tracking from initial, usually the section read
// at startup. A nil initial treats every key of the first reload as changed.
func NewCameraChanges(initial camera.Update) *CameraChanges {
	return &CameraChanges{last: initial}
}

// Next records u as the current section and returns the keys whose value
// differs from the previous one. Keys removed from the file are not
// reported; the running value stays.
func (c *CameraChanges) Next(u camera.Update) camera.Update {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := camera.Update{}
	for key, value := range u {
		if prev, ok := c.last[key]; !ok || !reflect.DeepEqual(prev, value) {
			changed[key] = value
		}
	}
	c.last = u
	return changed
}
