package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/ffjob/internal/events"
)

// registerSSERoutes exposes the encode lifecycle as a Server-Sent Events
// stream. Without an event bus the route is not registered.
func (s *Server) registerSSERoutes() {
	if s.options.EventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Encode event stream",
		Description: "Start, progress and finish events of the running encode",
		Tags:        []string{"events"},
	}, map[string]any{
		"encode-started":  events.EncodeStartedEvent{},
		"frame-progress":  events.FrameProgressEvent{},
		"encode-finished": events.EncodeFinishedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.EncodeStartedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.FrameProgressEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.EncodeFinishedEvent](s.options.EventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					s.logger.Debug("Event stream closed", "error", err)
					return
				}
				// The stream ends with the run.
				if _, ok := event.(events.EncodeFinishedEvent); ok {
					return
				}
			}
		}
	})
}
