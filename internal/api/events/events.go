// Package events streams bus events to Datastar clients via SSE.
package events

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog/log"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-ixmaps/internal/service"
)

// CustomEvent is the browser event each bus event is dispatched as.
const CustomEvent = "ixmaps-event"

// Handler streams map and theme events.
type Handler struct {
	bus *service.EventBus
}

// New creates an event handler reading from bus.
func New(bus *service.EventBus) *Handler {
	return &Handler{bus: bus}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/events", h.Events,
		huma.OperationTags("events"),
	)
}

// Events patches a signal per resource ({"maps": {...}}) and dispatches a
// CustomEvent for every bus event until the client goes away.
func (h *Handler) Events(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			r, w := humago.Unwrap(humaCtx)
			sse := datastar.NewSSE(w, r)

			ch := h.bus.Subscribe()
			defer h.bus.Unsubscribe(ch)

			for {
				select {
				case <-ctx.Done():
					return
				case <-r.Context().Done():
					return
				case ev := <-ch:
					if err := send(sse, ev); err != nil {
						log.Debug().Err(err).Msg("event stream closed")
						return
					}
				}
			}
		},
	}, nil
}

func send(sse *datastar.ServerSentEventGenerator, ev service.Event) error {
	if err := sse.MarshalAndPatchSignals(map[string]any{
		ev.Resource: map[string]any{
			"action": ev.Action,
			"id":     ev.ID,
		},
	}); err != nil {
		return err
	}
	return sse.DispatchCustomEvent(CustomEvent, ev)
}
