// Package recording tracks the recording flag and serves finished recordings
// from a directory.
package recording

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/spyglass/internal/logging"
)

var (
	// ErrInvalidName rejects recording names that could escape the directory.
	ErrInvalidName = errors.New("invalid path")
	// ErrNotFound is returned for names with no matching file.
	ErrNotFound = errors.New("file not found")
	// ErrNoDirectory is returned when no recordings directory is configured.
	ErrNoDirectory = errors.New("no recordings directory")
	// ErrNoRecorder is returned by Start and Stop without a Recorder.
	ErrNoRecorder = errors.New("recording not supported")
)

// Recorder performs the actual recording start and stop.
type Recorder interface {
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
}

// Result is the outcome of a Start or Stop request.
type Result struct {
	OK      bool
	Message string
}

// Entry describes one recording file.
type Entry struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Controller serializes recording transitions and lists the recordings directory.
type Controller struct {
	dir      string
	recorder Recorder
	logger   *slog.Logger

	mu        sync.Mutex
	recording bool
}

// NewController creates a controller over dir. An empty dir disables listing
// and downloads.
func NewController(dir string, recorder Recorder) *Controller {
	return &Controller{
		dir:      dir,
		recorder: recorder,
		logger:   logging.GetLogger("recording"),
	}
}

// Dir returns the recordings directory.
func (c *Controller) Dir() string {
	return c.dir
}

// Recording reports whether a recording is in progress.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Start begins recording. When already recording it succeeds with
// "Already recording" without touching the Recorder. The state flips only
// when the Recorder succeeds.
func (c *Controller) Start(ctx context.Context) (Result, error) {
	return c.transition(ctx, true)
}

// Stop ends recording, symmetric to Start ("Not recording").
func (c *Controller) Stop(ctx context.Context) (Result, error) {
	return c.transition(ctx, false)
}

func (c *Controller) transition(ctx context.Context, start bool) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording == start {
		if start {
			return Result{OK: true, Message: "Already recording"}, nil
		}
		return Result{OK: true, Message: "Not recording"}, nil
	}

	if c.recorder == nil {
		return Result{}, ErrNoRecorder
	}

	var err error
	if start {
		err = c.recorder.StartRecording(ctx)
	} else {
		err = c.recorder.StopRecording(ctx)
	}
	if err != nil {
		c.logger.Warn("Recording transition failed", "start", start, "error", err)
		return Result{}, err
	}

	c.recording = start
	c.logger.Info("Recording state changed", "recording", start)
	return Result{OK: true}, nil
}

// List returns the regular files in the recordings directory, newest first.
// A missing or unset directory yields an empty list.
func (c *Controller) List() ([]Entry, error) {
	entries := []Entry{}
	if c.dir == "" {
		return entries, nil
	}

	dirEntries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}

	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		entries = append(entries, Entry{
			Name:     de.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := b.Modified.Compare(a.Modified); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return entries, nil
}

// ValidName reports whether name is a plain file name inside the directory.
func ValidName(name string) bool {
	return !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}

// ReadFile returns the contents of the named recording.
func (c *Controller) ReadFile(name string) ([]byte, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	if c.dir == "" {
		return nil, ErrNoDirectory
	}

	path := filepath.Join(c.dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || name == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read recording %s: %w", name, err)
	}
	return data, nil
}
