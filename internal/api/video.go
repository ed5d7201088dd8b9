package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/smazurov/spyglass/internal/api/models"
	"github.com/smazurov/spyglass/internal/events"
	"github.com/smazurov/spyglass/internal/mjpeg"
)

const streamChunkSize = 32 * 1024

func (s *Server) registerVideoRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "stream-video",
		Method:      http.MethodGet,
		Path:        "/video",
		Summary:     "MJPEG stream",
		Description: "Live multipart/x-mixed-replace stream of JPEG frames. Ends after a stall with no new frame.",
		Tags:        []string{"video"},
	}, func(_ context.Context, _ *struct{}) (*huma.StreamResponse, error) {
		return &huma.StreamResponse{Body: s.streamVideo}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-snapshot",
		Method:      http.MethodGet,
		Path:        "/snap",
		Summary:     "Snapshot",
		Description: "Latest JPEG frame",
		Tags:        []string{"video"},
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(_ context.Context, _ *struct{}) (*models.BinaryResponse, error) {
		frame, ok := s.slot.Get()
		if !ok {
			return nil, huma.Error503ServiceUnavailable("No frame available")
		}
		return &models.BinaryResponse{ContentType: "image/jpeg", Body: frame.Data}, nil
	})
}

// streamVideo copies one client's MJPEG encoder to the response, flushing
// after every chunk.
func (s *Server) streamVideo(ctx huma.Context) {
	var opts []mjpeg.Option
	if s.options.StreamMaxWait > 0 {
		opts = append(opts, mjpeg.WithMaxWait(s.options.StreamMaxWait))
	}
	enc := mjpeg.NewEncoder(ctx.Context(), s.slot, s.store.Get().FPS, opts...)

	ctx.SetHeader("Content-Type", enc.ContentType())
	ctx.SetHeader("Cache-Control", "no-cache, no-store, must-revalidate")
	ctx.SetStatus(http.StatusOK)

	clientID := uuid.NewString()
	s.logger.Debug("Stream client connected", "client_id", clientID, "remote_addr", ctx.RemoteAddr())
	s.publish(events.StreamClientEvent{
		ClientID:  clientID,
		Action:    events.ClientConnected,
		Timestamp: time.Now().Format(time.RFC3339),
	})

	w := ctx.BodyWriter()
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, streamChunkSize)

	var sent int64
	for {
		n, err := enc.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				break
			}
			sent += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			break
		}
	}

	s.logger.Debug("Stream client disconnected", "client_id", clientID, "bytes", sent, "last_seq", enc.LastSequence())
	s.publish(events.StreamClientEvent{
		ClientID:  clientID,
		Action:    events.ClientDisconnected,
		Bytes:     sent,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
