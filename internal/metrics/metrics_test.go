package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/smazurov/spyglass/internal/events"
)

func TestFrameCounters(t *testing.T) {
	published := testutil.ToFloat64(framesPublished)
	bytes := testutil.ToFloat64(framesPublishedBytes)
	dropped := testutil.ToFloat64(framesDropped.WithLabelValues("convert"))
	dup := testutil.ToFloat64(framesDuplicate)

	IncrementFramesPublished(1000)
	IncrementFramesPublished(500)
	IncrementFramesDropped("convert")
	IncrementFramesDuplicate()

	if got := testutil.ToFloat64(framesPublished) - published; got != 2 {
		t.Errorf("frames published delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(framesPublishedBytes) - bytes; got != 1500 {
		t.Errorf("published bytes delta = %v, want 1500", got)
	}
	if got := testutil.ToFloat64(framesDropped.WithLabelValues("convert")) - dropped; got != 1 {
		t.Errorf("dropped delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(framesDuplicate) - dup; got != 1 {
		t.Errorf("duplicate delta = %v, want 1", got)
	}
}

func TestSetRecording(t *testing.T) {
	SetRecording(true)
	if v := testutil.ToFloat64(recording); v != 1 {
		t.Errorf("recording = %v, want 1", v)
	}
	SetRecording(false)
	if v := testutil.ToFloat64(recording); v != 0 {
		t.Errorf("recording = %v, want 0", v)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestSubscribe(t *testing.T) {
	bus := events.New()
	unsub := Subscribe(bus)
	defer unsub()

	clients := testutil.ToFloat64(streamClients)
	sent := testutil.ToFloat64(streamBytes)
	changes := testutil.ToFloat64(configChanges.WithLabelValues("api"))

	bus.Publish(events.StreamClientEvent{ClientID: "a", Action: events.ClientConnected})
	eventually(t, func() bool { return testutil.ToFloat64(streamClients) == clients+1 })

	bus.Publish(events.StreamClientEvent{ClientID: "a", Action: events.ClientDisconnected, Bytes: 4096})
	eventually(t, func() bool {
		return testutil.ToFloat64(streamClients) == clients && testutil.ToFloat64(streamBytes) == sent+4096
	})

	bus.Publish(events.RecordingStateChangedEvent{Recording: true})
	eventually(t, func() bool { return testutil.ToFloat64(recording) == 1 })
	bus.Publish(events.RecordingStateChangedEvent{Recording: false})
	eventually(t, func() bool { return testutil.ToFloat64(recording) == 0 })

	bus.Publish(events.ConfigChangedEvent{Source: "api"})
	eventually(t, func() bool { return testutil.ToFloat64(configChanges.WithLabelValues("api")) == changes+1 })
}

func TestHandler(t *testing.T) {
	IncrementFramesPublished(1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "spyglass_capture_frames_published_total") {
		t.Error("expected spyglass metrics in response")
	}
}
