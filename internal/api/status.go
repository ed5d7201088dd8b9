package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/spyglass/internal/api/models"
)

func (s *Server) registerStatusRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Device status",
		Description: "Camera configuration, recording state, battery, disk and uptime",
		Tags:        []string{"system"},
	}, func(ctx context.Context, _ *struct{}) (*models.StatusResponse, error) {
		st := s.host.Status(ctx)
		return &models.StatusResponse{
			Body: models.StatusData{
				Config:    toModel(s.store.Get()),
				Recording: s.recordings.Recording(),
				Battery:   st.Battery,
				Disk: models.DiskData{
					FreeBytes:  st.FreeBytes,
					TotalBytes: st.TotalBytes,
					FreeMB:     st.FreeBytes / (1024 * 1024),
				},
				Uptime: int64(st.Uptime / time.Second),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stream-audio",
		Method:      http.MethodGet,
		Path:        "/audio",
		Summary:     "Audio stream",
		Tags:        []string{"audio"},
		Errors:      []int{http.StatusNotImplemented},
	}, func(_ context.Context, _ *struct{}) (*struct{}, error) {
		return nil, huma.Error501NotImplemented("Audio streaming not yet implemented")
	})
}
