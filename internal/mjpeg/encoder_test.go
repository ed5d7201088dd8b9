package mjpeg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/spyglass/internal/frameslot"
)

func readPart(t *testing.T, e *Encoder) string {
	t.Helper()
	var out bytes.Buffer
	buf := make([]byte, 7)
	for {
		n, err := e.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if e.pendingLen() == 0 {
			return out.String()
		}
	}
}

func (e *Encoder) pendingLen() int { return len(e.pending) }

func TestEncoder_PartFormat(t *testing.T) {
	slot := frameslot.New()
	slot.Put([]byte("JPEGDATA"))

	e := NewEncoder(context.Background(), slot, 30)
	got := readPart(t, e)

	want := "--spyglass_frame\r\nContent-Type: image/jpeg\r\nContent-Length: 8\r\n\r\nJPEGDATA\r\n"
	if got != want {
		t.Errorf("part = %q, want %q", got, want)
	}
	if e.LastSequence() != 1 {
		t.Errorf("LastSequence() = %d, want 1", e.LastSequence())
	}
}

func TestEncoder_ContentType(t *testing.T) {
	e := NewEncoder(context.Background(), frameslot.New(), 15)
	if got := e.ContentType(); got != "multipart/x-mixed-replace; boundary=spyglass_frame" {
		t.Errorf("ContentType() = %q", got)
	}

	e = NewEncoder(context.Background(), frameslot.New(), 15, WithBoundary("other"))
	if !strings.HasSuffix(e.ContentType(), "boundary=other") {
		t.Errorf("ContentType() = %q, want custom boundary", e.ContentType())
	}
}

func TestPollInterval(t *testing.T) {
	tests := []struct {
		fps  int
		want time.Duration
	}{
		{15, 66 * time.Millisecond},
		{30, 33 * time.Millisecond},
		{1, time.Second},
		{1000, time.Millisecond},
		{2000, time.Millisecond},
		{0, 66 * time.Millisecond},
		{-4, 66 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := PollInterval(tt.fps); got != tt.want {
			t.Errorf("PollInterval(%d) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}

func TestEncoder_WaitsForNewFrame(t *testing.T) {
	slot := frameslot.New()
	slot.Put([]byte("one"))

	e := NewEncoder(context.Background(), slot, 100)
	readPart(t, e)

	go func() {
		time.Sleep(50 * time.Millisecond)
		slot.Put([]byte("two"))
	}()

	start := time.Now()
	got := readPart(t, e)
	if !strings.Contains(got, "\r\n\r\ntwo\r\n") {
		t.Errorf("second part = %q, want frame two", got)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("Read returned before a new frame was published")
	}
	if e.LastSequence() != 2 {
		t.Errorf("LastSequence() = %d, want 2", e.LastSequence())
	}
}

func TestEncoder_SkipsOverwrittenFrames(t *testing.T) {
	slot := frameslot.New()
	slot.Put([]byte("a"))
	slot.Put([]byte("b"))
	slot.Put([]byte("c"))

	e := NewEncoder(context.Background(), slot, 100)
	got := readPart(t, e)
	if !strings.Contains(got, "\r\n\r\nc\r\n") {
		t.Errorf("part = %q, want only the latest frame", got)
	}
}

func TestEncoder_MaxWaitEndsStream(t *testing.T) {
	slot := frameslot.New()
	e := NewEncoder(context.Background(), slot, 100, WithMaxWait(50*time.Millisecond))

	start := time.Now()
	_, err := e.Read(make([]byte, 64))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Read error = %v, want io.EOF", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("stall bound took %v", elapsed)
	}
}

func TestEncoder_MaxWaitAtHighFrameRate(t *testing.T) {
	slot := frameslot.New()
	slot.Put([]byte("one"))
	e := NewEncoder(context.Background(), slot, 2000, WithMaxWait(200*time.Millisecond))
	readPart(t, e)

	start := time.Now()
	_, err := e.Read(make([]byte, 64))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Read error = %v, want io.EOF", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("stream ended after %v, want about 200ms", elapsed)
	}
}

func TestEncoder_ContextCancel(t *testing.T) {
	slot := frameslot.New()
	ctx, cancel := context.WithCancel(context.Background())
	e := NewEncoder(ctx, slot, 1)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := e.Read(make([]byte, 64))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Read error = %v, want io.EOF", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancel did not interrupt the pacing sleep")
	}
}

func TestEncoder_SlotClose(t *testing.T) {
	slot := frameslot.New()
	e := NewEncoder(context.Background(), slot, 1)

	go func() {
		time.Sleep(20 * time.Millisecond)
		slot.Close()
	}()

	start := time.Now()
	_, err := e.Read(make([]byte, 64))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Read error = %v, want io.EOF", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("slot close did not interrupt the pacing sleep")
	}
}

func TestEncoder_IndependentClients(t *testing.T) {
	slot := frameslot.New()
	slot.Put([]byte("shared"))

	first := NewEncoder(context.Background(), slot, 100)
	second := NewEncoder(context.Background(), slot, 100)

	a := readPart(t, first)
	b := readPart(t, second)
	if a != b {
		t.Errorf("clients saw different parts: %q vs %q", a, b)
	}
}

func TestEncoder_StreamsThroughCopy(t *testing.T) {
	slot := frameslot.New()
	slot.Put([]byte("only"))

	e := NewEncoder(context.Background(), slot, 100, WithMaxWait(30*time.Millisecond))
	var out bytes.Buffer
	if _, err := io.Copy(&out, e); err != nil {
		t.Fatalf("io.Copy: %v", err)
	}
	if strings.Count(out.String(), "--spyglass_frame") != 1 {
		t.Errorf("expected exactly one part, got %q", out.String())
	}
}
