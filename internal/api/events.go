package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/spyglass/internal/events"
)

// registerSSERoutes registers the server-sent events endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Configuration, recording, capture and stream client events",
		Tags:        []string{"events"},
	}, map[string]any{
		"config-changed":          events.ConfigChangedEvent{},
		"recording-state-changed": events.RecordingStateChangedEvent{},
		"capture-state-changed":   events.CaptureStateChangedEvent{},
		"frame-dropped":           events.FrameDroppedEvent{},
		"stream-client":           events.StreamClientEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.ConfigChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RecordingStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CaptureStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FrameDroppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamClientEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// current state first so a new client needs no extra request
		if err := send.Data(s.store.Get().Event("initial")); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
