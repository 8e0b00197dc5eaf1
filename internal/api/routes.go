// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-switcher/internal/humastar"
	"github.com/joeblew999/plat-switcher/internal/service"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Basemaps *service.BasemapService
	Sessions *service.SessionService
	DB       *sql.DB // optional, switch history database
	DataDir  string
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Basemap ID" example:"osm"`
}

type SessionInput struct {
	ID string `path:"id" doc:"Session ID" format:"uuid"`
}

type BasemapOutput struct {
	Body service.BasemapConfig
}

type BasemapsOutput struct {
	Body []service.BasemapConfig
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether the history database is available"`
	Sessions int      `json:"sessions" doc:"Open widget sessions"`
	Basemaps int      `json:"basemaps" doc:"Configured basemaps"`
	Features []string `json:"features" doc:"Available features"`
}

// SessionBody is a widget view with the actions valid in its current state.
type SessionBody struct {
	service.SwitcherView
}

var (
	expandAction   = humastar.ActionDef{Rel: "expand", Pattern: "/api/v1/sessions/%s/expand", Method: http.MethodPost, Title: "Expand the switcher"}
	collapseAction = humastar.ActionDef{Rel: "collapse", Pattern: "/api/v1/sessions/%s/collapse", Method: http.MethodPost, Title: "Collapse the switcher"}
	sessionActions = []humastar.ActionDef{
		{Rel: "toggle", Pattern: "/api/v1/sessions/%s/toggle", Method: http.MethodPost, Title: "Toggle the switcher"},
		{Rel: "move", Pattern: "/api/v1/sessions/%s/view", Method: http.MethodPut, Title: "Move the primary map"},
		{Rel: "delete", Pattern: "/api/v1/sessions/%s", Method: http.MethodDelete, Title: "Close the session"},
	}
)

// Actions implements humastar.Actor. Select links are only offered while
// expanded, since collapsed widgets ignore selection.
func (b SessionBody) Actions() []humastar.Action {
	if b.Hidden {
		return humastar.ActionsFor(sessionActions[1:], b.SessionID)
	}
	var actions []humastar.Action
	if b.Expanded {
		actions = append(actions, collapseAction.For(b.SessionID))
		for _, m := range b.MiniMaps {
			if m.Active {
				continue
			}
			actions = append(actions, humastar.Action{
				Rel:    "select",
				Href:   "/api/v1/sessions/" + b.SessionID + "/select/" + m.Basemap,
				Method: http.MethodPost,
				Title:  "Show " + m.Name,
			})
		}
	} else {
		actions = append(actions, expandAction.For(b.SessionID))
	}
	return append(actions, humastar.ActionsFor(sessionActions, b.SessionID)...)
}

type SessionOutput struct {
	Body SessionBody
}

type SwitchOutput struct {
	Body struct {
		SessionBody
		Switched bool `json:"switched" doc:"Whether the base layer changed"`
	}
}

type CreateSessionInput struct {
	Body struct {
		Initial string `json:"initial,omitempty" doc:"Basemap shown first" example:"osm"`
	} `required:"false"`
}

type SelectInput struct {
	SessionInput
	Basemap string `path:"basemap" doc:"Basemap ID to show" example:"topo"`
}

type ViewInput struct {
	SessionInput
	Body struct {
		Lon  float64 `json:"lon" minimum:"-180" maximum:"180" doc:"Center longitude" example:"13.405"`
		Lat  float64 `json:"lat" minimum:"-90" maximum:"90" doc:"Center latitude" example:"52.52"`
		Zoom float64 `json:"zoom" minimum:"0" maximum:"24" doc:"Zoom level" example:"10"`
	}
}

type HistoryInput struct {
	Session string `query:"session" doc:"Only switches of this session"`
	Limit   int    `query:"limit" default:"50" minimum:"0" maximum:"1000" doc:"Maximum entries, 0 for all"`
}

type HistoryOutput struct {
	Body []service.HistoryEntry
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

// RegisterBasemaps registers basemap CRUD routes.
func (h *APIHandler) RegisterBasemaps(api huma.API) {
	huma.Get(api, "/api/v1/basemaps", h.GetBasemaps, huma.OperationTags("basemaps"))
	huma.Post(api, "/api/v1/basemaps", h.CreateBasemap, huma.OperationTags("basemaps"))
	huma.Get(api, "/api/v1/basemaps/{id}", h.GetBasemap, huma.OperationTags("basemaps"))
	huma.Put(api, "/api/v1/basemaps/{id}", h.PutBasemap, huma.OperationTags("basemaps"))
	huma.Delete(api, "/api/v1/basemaps/{id}", h.DeleteBasemap, huma.OperationTags("basemaps"))
}

// RegisterSessions registers widget session routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	huma.Get(api, "/api/v1/sessions", h.ListSessions, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions", h.CreateSession, huma.OperationTags("sessions"))
	huma.Get(api, "/api/v1/sessions/{id}", h.GetSession, huma.OperationTags("sessions"))
	huma.Delete(api, "/api/v1/sessions/{id}", h.DeleteSession, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{id}/select/{basemap}", h.Select, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{id}/expand", h.Expand, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{id}/collapse", h.Collapse, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{id}/toggle", h.Toggle, huma.OperationTags("sessions"))
	huma.Put(api, "/api/v1/sessions/{id}/view", h.PutView, huma.OperationTags("sessions"))
}

// RegisterHistory registers switch history routes.
func (h *APIHandler) RegisterHistory(api huma.API) {
	huma.Get(api, "/api/v1/history", h.GetHistory, huma.OperationTags("history"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-switcher",
		Version:  Version,
		DataDir:  h.svc.DataDir,
		DB:       h.svc.DB != nil,
		Sessions: len(h.svc.Sessions.IDs()),
		Basemaps: len(h.svc.Basemaps.List()),
		Features: []string{"minimap-switcher", "datastar", "duckdb-history", "prometheus"},
	}}, nil
}

func (h *APIHandler) GetBasemaps(ctx context.Context, input *struct{}) (*BasemapsOutput, error) {
	return &BasemapsOutput{Body: h.svc.Basemaps.List()}, nil
}

func (h *APIHandler) CreateBasemap(ctx context.Context, input *struct{ Body service.BasemapConfig }) (*BasemapOutput, error) {
	created, err := h.svc.Basemaps.Create(input.Body)
	if err != nil {
		return nil, apiError(err)
	}
	h.svc.Sessions.Bus().Publish(service.Event{Action: service.ActionBasemaps, LayerID: created.ID})
	return &BasemapOutput{Body: created}, nil
}

func (h *APIHandler) GetBasemap(ctx context.Context, input *IDInput) (*BasemapOutput, error) {
	b, ok := h.svc.Basemaps.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("basemap not found")
	}
	return &BasemapOutput{Body: b}, nil
}

func (h *APIHandler) PutBasemap(ctx context.Context, input *struct {
	IDInput
	Body service.BasemapConfig
}) (*BasemapOutput, error) {
	updated, err := h.svc.Basemaps.Update(input.ID, input.Body)
	if err != nil {
		return nil, apiError(err)
	}
	h.svc.Sessions.Bus().Publish(service.Event{Action: service.ActionBasemaps, LayerID: updated.ID})
	return &BasemapOutput{Body: updated}, nil
}

func (h *APIHandler) DeleteBasemap(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Basemaps.Delete(input.ID); err != nil {
		return nil, apiError(err)
	}
	h.svc.Sessions.Bus().Publish(service.Event{Action: service.ActionBasemaps, LayerID: input.ID})
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Basemap deleted"}}, nil
}

func (h *APIHandler) ListSessions(ctx context.Context, input *struct{}) (*struct{ Body []string }, error) {
	return &struct{ Body []string }{Body: h.svc.Sessions.IDs()}, nil
}

func (h *APIHandler) CreateSession(ctx context.Context, input *CreateSessionInput) (*SessionOutput, error) {
	v, err := h.svc.Sessions.Create(input.Body.Initial)
	if err != nil {
		return nil, apiError(err)
	}
	return &SessionOutput{Body: SessionBody{v}}, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	return sessionOutput(h.svc.Sessions.Get(input.ID))
}

func (h *APIHandler) DeleteSession(ctx context.Context, input *SessionInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Sessions.Delete(input.ID); err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session closed"}}, nil
}

func (h *APIHandler) Select(ctx context.Context, input *SelectInput) (*SwitchOutput, error) {
	res, err := h.svc.Sessions.Select(ctx, input.ID, input.Basemap)
	if err != nil {
		return nil, apiError(err)
	}
	out := &SwitchOutput{}
	out.Body.SessionBody = SessionBody{res.View}
	out.Body.Switched = res.Reflow
	return out, nil
}

func (h *APIHandler) Expand(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	return sessionOutput(h.svc.Sessions.Expand(input.ID))
}

func (h *APIHandler) Collapse(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	return sessionOutput(h.svc.Sessions.Collapse(input.ID))
}

func (h *APIHandler) Toggle(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	return sessionOutput(h.svc.Sessions.Toggle(input.ID))
}

func (h *APIHandler) PutView(ctx context.Context, input *ViewInput) (*SessionOutput, error) {
	return sessionOutput(h.svc.Sessions.Move(input.ID, orb.Point{input.Body.Lon, input.Body.Lat}, input.Body.Zoom))
}

func (h *APIHandler) GetHistory(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	entries, err := h.svc.Sessions.History().List(ctx, input.Session, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read history", err)
	}
	return &HistoryOutput{Body: entries}, nil
}

func sessionOutput(v service.SwitcherView, err error) (*SessionOutput, error) {
	if err != nil {
		return nil, apiError(err)
	}
	return &SessionOutput{Body: SessionBody{v}}, nil
}

// apiError maps service errors onto HTTP status codes.
func apiError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrBasemapNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrBasemapExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrBasemapInvalid):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrSessionLimit):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError("Internal error", err)
	}
}
