package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/spyglass/internal/api/models"
	"github.com/smazurov/spyglass/internal/recording"
)

func (s *Server) registerRecordingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "start-recording",
		Method:      http.MethodPost,
		Path:        "/record/start",
		Summary:     "Start recording",
		Tags:        []string{"recording"},
	}, func(ctx context.Context, _ *struct{}) (*models.RecordResponse, error) {
		return recordResponse(s.recordings.Start(ctx)), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-recording",
		Method:      http.MethodPost,
		Path:        "/record/stop",
		Summary:     "Stop recording",
		Tags:        []string{"recording"},
	}, func(ctx context.Context, _ *struct{}) (*models.RecordResponse, error) {
		return recordResponse(s.recordings.Stop(ctx)), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-recordings",
		Method:      http.MethodGet,
		Path:        "/recordings",
		Summary:     "List recordings",
		Tags:        []string{"recording"},
		Errors:      []int{http.StatusInternalServerError},
	}, func(_ context.Context, _ *struct{}) (*models.RecordingsResponse, error) {
		entries, err := s.recordings.List()
		if err != nil {
			return nil, mapError(err)
		}
		out := make([]models.Recording, 0, len(entries))
		for _, e := range entries {
			out = append(out, models.Recording{
				Name:     e.Name,
				Size:     e.Size,
				Modified: e.Modified.UnixMilli(),
			})
		}
		return &models.RecordingsResponse{Body: models.RecordingsData{Recordings: out}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-recording",
		Method:      http.MethodGet,
		Path:        "/recordings/{name}",
		Summary:     "Download a recording",
		Tags:        []string{"recording"},
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(_ context.Context, input *models.RecordingFileRequest) (*models.BinaryResponse, error) {
		data, err := s.recordings.ReadFile(input.Name)
		if err != nil {
			return nil, mapError(err)
		}
		return &models.BinaryResponse{ContentType: "video/mp4", Body: data}, nil
	})
}

// recordResponse reports a recorder failure in the body rather than as an
// HTTP error.
func recordResponse(res recording.Result, err error) *models.RecordResponse {
	if err != nil {
		return &models.RecordResponse{Body: models.RecordData{OK: false, Message: err.Error()}}
	}
	return &models.RecordResponse{Body: models.RecordData{OK: res.OK, Message: res.Message}}
}
