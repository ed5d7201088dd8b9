package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/spyglass/internal/api/models"
	"github.com/smazurov/spyglass/internal/camera"
)

func (s *Server) registerConfigRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/config",
		Summary:     "Get camera configuration",
		Tags:        []string{"config"},
	}, func(_ context.Context, _ *struct{}) (*models.ConfigResponse, error) {
		return &models.ConfigResponse{Body: toModel(s.store.Get())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-config",
		Method:      http.MethodPost,
		Path:        "/config",
		Summary:     "Update camera configuration",
		Description: "Applies any subset of camera, resolution, fps and jpegQuality. " +
			"Missing or unparseable fields keep their current value.",
		Tags: []string{"config"},
		RequestBody: &huma.RequestBody{
			Required: false,
			Content:  map[string]*huma.MediaType{"application/json": {}},
		},
		Errors:      []int{http.StatusInternalServerError},
		Middlewares: huma.Middlewares{readConfigBody},
	}, func(ctx context.Context, _ *struct{}) (*models.ConfigUpdateResponse, error) {
		raw, _ := ctx.Value(configBodyKey{}).(configBody)
		if raw.err != nil {
			return nil, huma.Error500InternalServerError(raw.err.Error())
		}
		update, err := decodeUpdate(raw.data)
		if err != nil {
			return nil, huma.Error500InternalServerError(err.Error())
		}

		cfg, err := s.store.ApplyPartial(ctx, update)
		s.publish(cfg.Event("api"))
		if err != nil {
			return nil, mapError(err)
		}
		return &models.ConfigUpdateResponse{Body: models.ConfigUpdateData{OK: true, Config: toModel(cfg)}}, nil
	})
}

const maxConfigBody = 64 * 1024

type configBodyKey struct{}

type configBody struct {
	data []byte
	err  error
}

// readConfigBody hands the raw request body to the POST /config handler.
// huma marks every RawBody input as required, but an empty body is a valid
// empty update here.
func readConfigBody(ctx huma.Context, next func(huma.Context)) {
	var raw configBody
	raw.data, raw.err = io.ReadAll(io.LimitReader(ctx.BodyReader(), maxConfigBody))
	if raw.err != nil {
		raw.err = fmt.Errorf("read body: %w", raw.err)
	}
	next(huma.WithValue(ctx, configBodyKey{}, raw))
}

// decodeUpdate parses a partial configuration. An empty body is an empty
// update. Numbers are kept as json.Number so camera.Merge can truncate them.
func decodeUpdate(body []byte) (camera.Update, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var update camera.Update
	if err := dec.Decode(&update); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if update == nil {
		return nil, fmt.Errorf("invalid JSON: expected an object")
	}
	return update, nil
}
