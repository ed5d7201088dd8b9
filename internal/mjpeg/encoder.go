// Package mjpeg frames the latest camera frame as a multipart/x-mixed-replace
// stream, one Encoder per connected client.
package mjpeg

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/smazurov/spyglass/internal/frameslot"
)

// Boundary separates JPEG parts in the stream.
const Boundary = "spyglass_frame"

const (
	defaultInterval = 66 * time.Millisecond
	defaultMaxWait  = 10 * time.Second
)

// ContentType returns the response Content-Type for a stream using boundary.
func ContentType(boundary string) string {
	return "multipart/x-mixed-replace; boundary=" + boundary
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithBoundary overrides the multipart boundary.
func WithBoundary(boundary string) Option {
	return func(e *Encoder) {
		e.boundary = boundary
	}
}

// WithMaxWait bounds how long Read waits for a new frame before ending the
// stream with io.EOF.
func WithMaxWait(d time.Duration) Option {
	return func(e *Encoder) {
		if d > 0 {
			e.maxWait = d
		}
	}
}

// Encoder is an io.Reader producing multipart JPEG parts from a frame slot.
// Not safe for concurrent use; each client gets its own.
type Encoder struct {
	ctx      context.Context
	slot     *frameslot.Slot
	boundary string
	interval time.Duration
	maxWait  time.Duration

	lastSeq uint64
	buf     []byte
	pending []byte
	timer   *time.Timer
}

// NewEncoder creates an encoder pacing itself at fps. The stream ends when ctx
// is cancelled, the slot closes, or no new frame shows up within the max wait.
func NewEncoder(ctx context.Context, slot *frameslot.Slot, fps int, opts ...Option) *Encoder {
	e := &Encoder{
		ctx:      ctx,
		slot:     slot,
		boundary: Boundary,
		interval: PollInterval(fps),
		maxWait:  defaultMaxWait,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PollInterval returns the frame pacing interval for fps, never less than
// one millisecond.
func PollInterval(fps int) time.Duration {
	if fps <= 0 {
		return defaultInterval
	}
	return time.Duration(max(1000/fps, 1)) * time.Millisecond
}

// ContentType returns the Content-Type header matching this encoder's parts.
func (e *Encoder) ContentType() string {
	return ContentType(e.boundary)
}

// LastSequence returns the sequence of the last frame handed out.
func (e *Encoder) LastSequence() uint64 {
	return e.lastSeq
}

func (e *Encoder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(e.pending) == 0 {
		if err := e.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, e.pending)
	e.pending = e.pending[n:]
	return n, nil
}

// next waits for a frame newer than the last one and frames it into pending.
func (e *Encoder) next() error {
	deadline := time.Now().Add(e.maxWait)

	for {
		if e.ctx.Err() != nil {
			return io.EOF
		}
		if f, ok := e.slot.Get(); ok && f.Seq != e.lastSeq {
			e.lastSeq = f.Seq
			e.buf = appendPart(e.buf[:0], e.boundary, f.Data)
			e.pending = e.buf
			return nil
		}
		if !time.Now().Before(deadline) || !e.wait() {
			return io.EOF
		}
	}
}

// wait sleeps one pacing interval. It reports false when the request or the
// slot ended first.
func (e *Encoder) wait() bool {
	if e.timer == nil {
		e.timer = time.NewTimer(e.interval)
	} else {
		e.timer.Reset(e.interval)
	}

	select {
	case <-e.timer.C:
		return true
	case <-e.ctx.Done():
	case <-e.slot.Done():
	}
	if !e.timer.Stop() {
		select {
		case <-e.timer.C:
		default:
		}
	}
	return false
}

func appendPart(dst []byte, boundary string, jpeg []byte) []byte {
	dst = append(dst, "--"...)
	dst = append(dst, boundary...)
	dst = append(dst, "\r\nContent-Type: image/jpeg\r\nContent-Length: "...)
	dst = strconv.AppendInt(dst, int64(len(jpeg)), 10)
	dst = append(dst, "\r\n\r\n"...)
	dst = append(dst, jpeg...)
	dst = append(dst, "\r\n"...)
	return dst
}
