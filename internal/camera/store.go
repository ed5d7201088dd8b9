package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/smazurov/spyglass/internal/logging"
)

// Applier pushes a new configuration to the capture side.
type Applier func(ctx context.Context, cfg Config) error

// ApplyError reports an Applier failure. The new configuration is already
// stored when it is returned.
type ApplyError struct {
	Config Config
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply camera config %s@%dfps: %v", e.Config.Resolution(), e.Config.FPS, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Store holds the current configuration. Reads are lock-free, writers are
// serialized so the Applier sees configurations in the order they were stored.
type Store struct {
	current atomic.Pointer[Config]
	mu      sync.Mutex
	applier Applier
	logger  *slog.Logger
}

// NewStore creates a store holding initial.
func NewStore(initial Config) *Store {
	s := &Store{logger: logging.GetLogger("camera")}
	s.current.Store(&initial)
	return s
}

// Get returns the current configuration.
func (s *Store) Get() Config {
	return *s.current.Load()
}

// SetApplier registers the hook invoked after every replacement.
func (s *Store) SetApplier(a Applier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applier = a
}

// ApplyPartial merges u into the current configuration, stores the result
// and invokes the Applier. On hook failure the stored configuration stays
// replaced and an *ApplyError is returned.
func (s *Store) ApplyPartial(ctx context.Context, u Update) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.Get()
	next := Merge(prev, u)
	s.current.Store(&next)

	s.logger.Debug("Camera config replaced",
		"camera", next.Camera,
		"resolution", next.Resolution(),
		"fps", next.FPS,
		"jpeg_quality", next.JPEGQuality)

	if s.applier == nil {
		return next, nil
	}
	if err := s.applier(ctx, next); err != nil {
		s.logger.Warn("Failed to apply camera config", "error", err)
		return next, &ApplyError{Config: next, Err: err}
	}
	return next, nil
}
