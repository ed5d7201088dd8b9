// Package frameslot holds the latest published camera frame.
//
// A Slot is shared by one capture producer and any number of readers
// (stream clients, snapshot requests). Each Put swaps in a new immutable
// snapshot, so readers never copy under a lock and never observe a frame
// paired with another frame's sequence number.
package frameslot

import (
	"sync"
	"sync/atomic"
)

// Frame is an immutable published frame. Data must not be modified after Put.
type Frame struct {
	Data []byte
	Seq  uint64
}

// closedFrame marks a closed slot. It is never returned to readers.
var closedFrame = &Frame{}

// Slot is a single-frame cache with a monotonically increasing sequence.
type Slot struct {
	current   atomic.Pointer[Frame]
	done      chan struct{}
	closeOnce sync.Once
}

// New creates an empty slot.
func New() *Slot {
	return &Slot{done: make(chan struct{})}
}

// Put publishes data as the latest frame and returns its sequence number.
// Safe for concurrent writers. Returns 0 once the slot is closed.
func (s *Slot) Put(data []byte) uint64 {
	for {
		old := s.current.Load()
		if old == closedFrame {
			return 0
		}
		next := &Frame{Data: data, Seq: 1}
		if old != nil {
			next.Seq = old.Seq + 1
		}
		if s.current.CompareAndSwap(old, next) {
			return next.Seq
		}
	}
}

// Get returns the latest frame, or false if nothing has been published
// since creation or the last Clear.
func (s *Slot) Get() (Frame, bool) {
	f := s.current.Load()
	if f == nil || f == closedFrame {
		return Frame{}, false
	}
	return *f, true
}

// Sequence returns the sequence of the latest frame, 0 when empty.
func (s *Slot) Sequence() uint64 {
	if f, ok := s.Get(); ok {
		return f.Seq
	}
	return 0
}

// Clear drops the current frame and resets the sequence to 0.
func (s *Slot) Clear() {
	for {
		old := s.current.Load()
		if old == closedFrame || s.current.CompareAndSwap(old, nil) {
			return
		}
	}
}

// Close clears the slot, rejects further puts and closes Done.
func (s *Slot) Close() {
	s.closeOnce.Do(func() {
		s.current.Store(closedFrame)
		close(s.done)
	})
}

// Done is closed when the slot shuts down.
func (s *Slot) Done() <-chan struct{} {
	return s.done
}
