package ui

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-switcher/internal/humastar"
	"github.com/joeblew999/plat-switcher/internal/service"
)

// EventHandler streams a session's widget changes to the Datastar UI via SSE,
// so every tab showing the session stays in step. An open stream keeps its
// session from expiring.
type EventHandler struct {
	*WidgetHandler
}

// NewEventHandler creates a new event handler.
func NewEventHandler(widgets *WidgetHandler) *EventHandler {
	return &EventHandler{WidgetHandler: widgets}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/ui/sessions/{id}/events", h.Events,
		huma.OperationTags("ui"),
	)
}

func (h *EventHandler) Events(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	release, err := h.sessions.Attach(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	bus := h.sessions.Bus()
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			defer release()
			sse := humastar.NewSSE(humaCtx)
			ch := bus.Subscribe()
			defer bus.Unsubscribe(ch)

			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					if ev.Session != "" && ev.Session != input.ID {
						continue
					}
					if !h.forward(ctx, sse, input.ID, ev) {
						return
					}
				}
			}
		},
	}, nil
}

// forward pushes one event and reports whether the stream should continue.
func (h *EventHandler) forward(ctx context.Context, sse humastar.SSE, id string, ev service.Event) bool {
	switch ev.Action {
	case service.ActionClosed:
		sse.Error("session closed")
		return false
	case service.ActionSwitched:
		sse.Patch(h.renderHistory(ctx, id), "#history")
	}
	if v, err := h.sessions.Get(id); err == nil {
		h.patchWidget(sse, v)
	}
	sse.DispatchCustomEvent("switcher-changed", map[string]any{
		"action":  ev.Action,
		"basemap": ev.LayerID,
	})
	return true
}
