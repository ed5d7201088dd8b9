// Package models defines the request and response bodies of the HTTP API.
package models

// ErrorBody is the body of every error response.
type ErrorBody struct {
	Error string `json:"error" example:"No frame available" doc:"Error message"`
}

// CameraConfig is the wire form of a camera configuration.
type CameraConfig struct {
	Camera      int    `json:"camera" example:"0" doc:"Camera selector (0 = back, 1 = front)"`
	Resolution  string `json:"resolution" example:"1280x720" doc:"Frame size as WIDTHxHEIGHT"`
	FPS         int    `json:"fps" example:"15" doc:"Target frame rate"`
	JPEGQuality int    `json:"jpegQuality" example:"80" doc:"JPEG quality (1-100)"`
}

// ConfigResponse is returned by GET /config.
type ConfigResponse struct {
	Body CameraConfig
}

// ConfigUpdateData is the body returned by POST /config.
type ConfigUpdateData struct {
	OK     bool         `json:"ok" example:"true" doc:"Always true on success"`
	Config CameraConfig `json:"config" doc:"Configuration now in effect"`
}

// ConfigUpdateResponse is returned by POST /config.
type ConfigUpdateResponse struct {
	Body ConfigUpdateData
}

// RecordData is the body returned by the record endpoints.
type RecordData struct {
	OK      bool   `json:"ok" example:"true" doc:"Whether the request succeeded"`
	Message string `json:"message,omitempty" example:"Already recording" doc:"Set when nothing changed or the recorder failed"`
}

// RecordResponse is returned by POST /record/start and /record/stop.
type RecordResponse struct {
	Body RecordData
}

// Recording describes one recording file.
type Recording struct {
	Name     string `json:"name" example:"spyglass-20250127-103000.mp4" doc:"File name"`
	Size     int64  `json:"size" example:"1048576" doc:"Size in bytes"`
	Modified int64  `json:"modified" example:"1737973800000" doc:"Last modification, milliseconds since the Unix epoch"`
}

// RecordingsData lists recordings, newest first.
type RecordingsData struct {
	Recordings []Recording `json:"recordings" doc:"Recording files, newest first"`
}

// RecordingsResponse is returned by GET /recordings.
type RecordingsResponse struct {
	Body RecordingsData
}

// RecordingFileRequest names a recording.
type RecordingFileRequest struct {
	Name string `path:"name" doc:"Recording file name"`
}

// BinaryResponse carries raw bytes with their content type.
type BinaryResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
