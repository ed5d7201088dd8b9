package events

// Event type constants for kelindar/event.
const (
	TypeConfigChanged uint32 = iota + 1
	TypeRecordingStateChanged
	TypeFrameDropped
	TypeStreamClient
	TypeCaptureStateChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ConfigChangedEvent is published after the camera configuration was replaced.
type ConfigChangedEvent struct {
	Camera      int    `json:"camera" example:"0" doc:"Camera selector (0 = back, 1 = front)"`
	Resolution  string `json:"resolution" example:"1280x720" doc:"Frame size"`
	FPS         int    `json:"fps" example:"15" doc:"Target frame rate"`
	JPEGQuality int    `json:"jpegQuality" example:"80" doc:"JPEG quality"`
	Source      string `json:"source" example:"api" doc:"What triggered the change: api, file"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConfigChangedEvent.
func (e ConfigChangedEvent) Type() uint32 { return TypeConfigChanged }

// RecordingStateChangedEvent reports a recording start or stop.
type RecordingStateChangedEvent struct {
	Recording bool   `json:"recording" example:"true" doc:"Whether recording is active"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingStateChangedEvent.
func (e RecordingStateChangedEvent) Type() uint32 { return TypeRecordingStateChanged }

// FrameDroppedEvent reports a captured frame that never reached the slot.
type FrameDroppedEvent struct {
	Reason    string `json:"reason" example:"convert" doc:"Stage that rejected the frame: convert, encode"`
	Error     string `json:"error" doc:"Error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// StreamClientEvent actions.
const (
	ClientConnected    = "connected"
	ClientDisconnected = "disconnected"
)

// StreamClientEvent reports an MJPEG client connecting or leaving.
type StreamClientEvent struct {
	ClientID  string `json:"client_id" example:"0b6c6f5e-...." doc:"Stream client identifier"`
	Action    string `json:"action" example:"connected" doc:"connected or disconnected"`
	Bytes     int64  `json:"bytes" example:"1048576" doc:"Bytes sent, set on disconnect"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamClientEvent.
func (e StreamClientEvent) Type() uint32 { return TypeStreamClient }

// CaptureStateChangedEvent reports the capture source starting or stopping.
type CaptureStateChangedEvent struct {
	Source    string `json:"source" example:"pattern" doc:"Capture source name"`
	Running   bool   `json:"running" doc:"Whether the source is producing frames"`
	Error     string `json:"error,omitempty" doc:"Why the source stopped, if it failed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureStateChangedEvent.
func (e CaptureStateChangedEvent) Type() uint32 { return TypeCaptureStateChanged }
