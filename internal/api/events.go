package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/lampnode/internal/events"
)

// ConnectedEvent is the first message of every event stream.
type ConnectedEvent struct {
	State     string `json:"state" example:"blink" doc:"Lamp state when the stream opened"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Connection timestamp"`
}

func (s *Server) registerSSERoutes() {
	if s.eventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time lamp state changes, button presses, push notifications and identity resolution",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"connected":         ConnectedEvent{},
		"state-changed":     events.StateChangedEvent{},
		"button-pressed":    events.ButtonPressedEvent{},
		"push-received":     events.PushReceivedEvent{},
		"identity-resolved": events.IdentityResolvedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)
		onDrop := s.dropLogger()
		unsubscribers := []func(){
			events.SubscribeToChannel(s.eventBus, eventCh, func(events.StateChangedEvent) { onDrop("state-changed") }),
			events.SubscribeToChannel(s.eventBus, eventCh, func(events.ButtonPressedEvent) { onDrop("button-pressed") }),
			events.SubscribeToChannel(s.eventBus, eventCh, func(events.PushReceivedEvent) { onDrop("push-received") }),
			events.SubscribeToChannel(s.eventBus, eventCh, func(events.IdentityResolvedEvent) { onDrop("identity-resolved") }),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		hello := ConnectedEvent{Timestamp: time.Now().Format(time.RFC3339)}
		if s.options.State != nil {
			hello.State = s.options.State.State().String()
		}
		if err := send.Data(hello); err != nil {
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

func (s *Server) dropLogger() func(kind string) {
	return func(kind string) {
		s.logger.Debug("SSE client too slow, event dropped", "event", kind)
	}
}
