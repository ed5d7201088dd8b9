package models

// DiskData reports storage of the recordings volume.
type DiskData struct {
	FreeBytes  uint64 `json:"freeBytes" example:"8589934592" doc:"Bytes available"`
	TotalBytes uint64 `json:"totalBytes" example:"34359738368" doc:"Volume size in bytes"`
	FreeMB     uint64 `json:"freeMB" example:"8192" doc:"freeBytes in MiB"`
}

// StatusData is the body returned by GET /status.
type StatusData struct {
	Config    CameraConfig `json:"config" doc:"Current camera configuration"`
	Recording bool         `json:"recording" doc:"Whether recording is active"`
	Battery   int          `json:"battery" example:"85" doc:"Battery percent, -1 when unknown"`
	Disk      DiskData     `json:"disk"`
	Uptime    int64        `json:"uptime" example:"123" doc:"Seconds since boot"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Body StatusData
}
