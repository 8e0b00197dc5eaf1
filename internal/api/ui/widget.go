// Package ui contains Datastar SSE handlers that drive the switcher widget in
// a browser.
package ui

import (
	"context"
	"errors"
	"html/template"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-switcher/internal/humastar"
	"github.com/joeblew999/plat-switcher/internal/service"
	"github.com/joeblew999/plat-switcher/internal/templates"
)

const historyLimit = 10

// WidgetHandler renders the switcher page and applies widget interactions.
type WidgetHandler struct {
	humastar.Handler
	sessions *service.SessionService
}

func NewWidgetHandler(sessions *service.SessionService, renderer *templates.Renderer) *WidgetHandler {
	return &WidgetHandler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
	}
}

func (h *WidgetHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/ui", h.NewPage, huma.OperationTags("ui"))
	huma.Get(api, "/ui/sessions/{id}", h.Page, huma.OperationTags("ui"))
	huma.Get(api, "/ui/sessions/{id}/widget", h.Widget, huma.OperationTags("ui"))
	huma.Post(api, "/ui/sessions/{id}/select/{basemap}", h.Select, huma.OperationTags("ui"))
	huma.Post(api, "/ui/sessions/{id}/expand", h.Expand, huma.OperationTags("ui"))
	huma.Post(api, "/ui/sessions/{id}/collapse", h.Collapse, huma.OperationTags("ui"))
	huma.Post(api, "/ui/sessions/{id}/toggle", h.Toggle, huma.OperationTags("ui"))
	huma.Post(api, "/ui/sessions/{id}/move", h.Move, huma.OperationTags("ui"))
}

type SessionInput struct {
	ID string `path:"id" doc:"Session ID"`
}

type SelectInput struct {
	SessionInput
	Basemap string `path:"basemap" doc:"Basemap ID to show"`
}

type MoveInput struct {
	SessionInput
	humastar.SignalsInput
}

type NewPageInput struct {
	Initial string `query:"basemap" doc:"Basemap shown first"`
}

type PageOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// PageData is the model of the page template.
type PageData struct {
	View    service.SwitcherView
	History template.HTML
}

// NewPage opens a session and renders its page.
func (h *WidgetHandler) NewPage(ctx context.Context, input *NewPageInput) (*PageOutput, error) {
	v, err := h.sessions.Create(input.Initial)
	if errors.Is(err, service.ErrSessionLimit) {
		return nil, huma.Error503ServiceUnavailable(err.Error())
	}
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return h.page(ctx, v)
}

// Page renders the page of an existing session.
func (h *WidgetHandler) Page(ctx context.Context, input *SessionInput) (*PageOutput, error) {
	v, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return h.page(ctx, v)
}

func (h *WidgetHandler) page(ctx context.Context, v service.SwitcherView) (*PageOutput, error) {
	html, err := h.Renderer.Render("page", PageData{View: v, History: template.HTML(h.renderHistory(ctx, v.SessionID))})
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to render page", err)
	}
	return &PageOutput{ContentType: "text/html; charset=utf-8", Body: []byte(html)}, nil
}

// Widget re-sends the whole widget.
func (h *WidgetHandler) Widget(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	v, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return h.Stream(func(sse humastar.SSE) {
		h.patchWidget(sse, v)
	}), nil
}

// Select switches the base layer, as a click on a minimap. A switch is
// applied without transitions: the widget is patched with the notransition
// class, forced through a reflow, then patched again to restore them. An
// ignored selection re-sends the current widget.
func (h *WidgetHandler) Select(ctx context.Context, input *SelectInput) (*huma.StreamResponse, error) {
	res, err := h.sessions.Select(ctx, input.ID, input.Basemap)
	if err != nil {
		return h.Stream(func(sse humastar.SSE) { sse.Error(err.Error()) }), nil
	}
	return h.Stream(func(sse humastar.SSE) {
		if !res.Reflow {
			h.patchWidget(sse, res.View)
			return
		}
		instant := res.View
		instant.NoTransition = true
		h.patchWidget(sse, instant)
		sse.Reflow("switcher")
		h.patchWidget(sse, res.View)
		sse.Patch(h.renderHistory(ctx, input.ID), "#history")
		sse.DispatchCustomEvent("baselayerchanged", map[string]any{
			"session": input.ID,
			"basemap": res.View.Active,
		})
		sse.Success("Showing " + res.View.ActiveName())
	}), nil
}

func (h *WidgetHandler) Expand(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	return h.apply(h.sessions.Expand(input.ID))
}

func (h *WidgetHandler) Collapse(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	return h.apply(h.sessions.Collapse(input.ID))
}

func (h *WidgetHandler) Toggle(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	return h.apply(h.sessions.Toggle(input.ID))
}

// Move reads the lon, lat and zoom signals and moves the primary map.
func (h *WidgetHandler) Move(ctx context.Context, input *MoveInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("lon") || !signals.Has("lat") || !signals.Has("zoom") {
		return nil, huma.Error400BadRequest("lon, lat and zoom are required")
	}
	return h.apply(h.sessions.Move(input.ID, orb.Point{signals.Float("lon"), signals.Float("lat")}, signals.Float("zoom")))
}

func (h *WidgetHandler) apply(v service.SwitcherView, err error) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if err != nil {
			sse.Error(err.Error())
			return
		}
		h.patchWidget(sse, v)
	}), nil
}

func (h *WidgetHandler) patchWidget(sse humastar.SSE, v service.SwitcherView) {
	sse.Replace(h.Renderer.MustRender("switcher", v), "#switcher")
	sse.Replace(h.Renderer.MustRender("primary", v), "#map")
	sse.Signals(map[string]any{"lon": v.Lon, "lat": v.Lat, "zoom": v.Zoom, "error": "", "success": ""})
}

func (h *WidgetHandler) renderHistory(ctx context.Context, sessionID string) string {
	entries, err := h.sessions.History().List(ctx, sessionID, historyLimit)
	if err != nil {
		return h.RenderList("history-entry", nil, "History unavailable", err.Error())
	}
	items := make([]any, len(entries))
	for i, e := range entries {
		items[i] = e
	}
	return h.RenderList("history-entry", items, "No switches yet", "Hover the switcher and pick a map")
}
