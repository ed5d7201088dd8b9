// Package metrics provides Prometheus metrics for the capture pipeline,
// stream clients and recording state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture pipeline counters.
	framesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spyglass",
		Subsystem: "capture",
		Name:      "frames_published_total",
		Help:      "Frames encoded and published to the frame slot",
	})

	framesPublishedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spyglass",
		Subsystem: "capture",
		Name:      "published_bytes_total",
		Help:      "JPEG bytes published to the frame slot",
	})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spyglass",
		Subsystem: "capture",
		Name:      "frames_dropped_total",
		Help:      "Captured frames rejected before publishing",
	}, []string{"reason"})

	framesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spyglass",
		Subsystem: "capture",
		Name:      "frames_duplicate_total",
		Help:      "Frames skipped because they matched the previous frame",
	})

	// Stream clients.
	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "spyglass",
		Subsystem: "stream",
		Name:      "active_clients",
		Help:      "Number of connected MJPEG stream clients",
	})

	streamBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spyglass",
		Subsystem: "stream",
		Name:      "bytes_total",
		Help:      "Bytes sent to MJPEG stream clients",
	})

	// State.
	recording = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "spyglass",
		Name:      "recording",
		Help:      "1 while recording is active",
	})

	configChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spyglass",
		Name:      "config_changes_total",
		Help:      "Camera configuration changes by origin",
	}, []string{"source"})
)

// IncrementFramesPublished records one published frame of n bytes.
func IncrementFramesPublished(n int) {
	framesPublished.Inc()
	framesPublishedBytes.Add(float64(n))
}

// IncrementFramesDropped records a frame rejected at the given stage.
func IncrementFramesDropped(reason string) {
	framesDropped.WithLabelValues(reason).Inc()
}

// IncrementFramesDuplicate records a frame skipped as unchanged.
func IncrementFramesDuplicate() {
	framesDuplicate.Inc()
}

// StreamClientConnected records a new stream client.
func StreamClientConnected() {
	streamClients.Inc()
}

// StreamClientDisconnected records a stream client leaving after n bytes.
func StreamClientDisconnected(n int64) {
	streamClients.Dec()
	if n > 0 {
		streamBytes.Add(float64(n))
	}
}

// SetRecording sets the recording gauge.
func SetRecording(active bool) {
	if active {
		recording.Set(1)
		return
	}
	recording.Set(0)
}

// IncrementConfigChanges records a configuration change from source.
func IncrementConfigChanges(source string) {
	configChanges.WithLabelValues(source).Inc()
}
