// Package service contains business logic for the plat-switcher server.
package service

import (
	"github.com/joeblew999/plat-switcher/internal/mapengine"
	"github.com/joeblew999/plat-switcher/internal/switcher"
)

// BasemapConfig is a switchable base layer definition. A basemap is either a
// single tile source (URL set) or a group of tile sources shown together.
type BasemapConfig struct {
	ID          string       `json:"id,omitempty" yaml:"id,omitempty" doc:"Unique basemap identifier" example:"osm"`
	Name        string       `json:"name" yaml:"name" required:"true" minLength:"1" maxLength:"100" doc:"Display name shown under the minimap" example:"OpenStreetMap"`
	URL         string       `json:"url,omitempty" yaml:"url,omitempty" doc:"Tile URL template" example:"https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"`
	Attribution string       `json:"attribution,omitempty" yaml:"attribution,omitempty" doc:"Attribution HTML" example:"&copy; OpenStreetMap contributors"`
	Subdomains  []string     `json:"subdomains,omitempty" yaml:"subdomains,omitempty" doc:"Values substituted for {s}"`
	MinZoom     int          `json:"minZoom,omitempty" yaml:"minZoom,omitempty" minimum:"0" maximum:"24" doc:"Minimum zoom served"`
	MaxZoom     int          `json:"maxZoom,omitempty" yaml:"maxZoom,omitempty" minimum:"0" maximum:"24" doc:"Maximum zoom served" example:"19"`
	Group       []TileSource `json:"group,omitempty" yaml:"group,omitempty" doc:"Tile sources combined into one basemap"`
}

// TileSource is one member of a grouped basemap.
type TileSource struct {
	URL         string `json:"url" yaml:"url" required:"true" doc:"Tile URL template"`
	Attribution string `json:"attribution,omitempty" yaml:"attribution,omitempty" doc:"Attribution HTML"`
	MaxZoom     int    `json:"maxZoom,omitempty" yaml:"maxZoom,omitempty" minimum:"0" maximum:"24" doc:"Maximum zoom served"`
}

// Layer builds the engine layer for the basemap.
func (b BasemapConfig) Layer() mapengine.Layer {
	if len(b.Group) > 0 {
		g := mapengine.NewLayerGroup()
		for _, src := range b.Group {
			g.AddLayer(mapengine.NewTileLayer(src.URL, tileOptions(src.Attribution, nil, 0, src.MaxZoom)))
		}
		return g
	}
	return mapengine.NewTileLayer(b.URL, tileOptions(b.Attribution, b.Subdomains, b.MinZoom, b.MaxZoom))
}

func tileOptions(attribution string, subdomains []string, minZoom, maxZoom int) map[string]any {
	opts := map[string]any{}
	if attribution != "" {
		opts["attribution"] = attribution
	}
	if len(subdomains) > 0 {
		opts["subdomains"] = append([]string(nil), subdomains...)
	}
	if minZoom > 0 {
		opts["minZoom"] = minZoom
	}
	if maxZoom > 0 {
		opts["maxZoom"] = maxZoom
	}
	return opts
}

// MiniMapView is the render state of one minimap.
type MiniMapView struct {
	LayerID   switcher.LayerID `json:"layerId" doc:"Layer identity"`
	Basemap   string           `json:"basemap" doc:"Basemap ID"`
	Name      string           `json:"name" doc:"Display name"`
	Container string           `json:"container" doc:"Element id of the minimap"`
	URL       string           `json:"url,omitempty" doc:"Tile URL template of the preview"`
	Active    bool             `json:"active" doc:"Layer is shown on the primary map"`
	Suggested bool             `json:"suggested" doc:"Layer is offered first when collapsed"`
	Left      int              `json:"left" doc:"Horizontal offset in pixels"`
	Lon       float64          `json:"lon" doc:"Minimap center longitude"`
	Lat       float64          `json:"lat" doc:"Minimap center latitude"`
	Zoom      float64          `json:"zoom" doc:"Minimap zoom"`
}

// SwitcherView is everything needed to draw one session's widget.
type SwitcherView struct {
	SessionID     string        `json:"sessionId" doc:"Session ID"`
	Hidden        bool          `json:"hidden" doc:"Widget hidden for lack of layers"`
	Expanded      bool          `json:"expanded" doc:"Widget is expanded"`
	NoTransition  bool          `json:"noTransition" doc:"Transitions are suspended"`
	Position      string        `json:"position" doc:"Map corner"`
	Width         int           `json:"width" doc:"Widget width in pixels"`
	Height        int           `json:"height" doc:"Widget height in pixels"`
	MiniMapWidth  int           `json:"miniMapWidth" doc:"Minimap width in pixels"`
	MiniMapHeight int           `json:"miniMapHeight" doc:"Minimap height in pixels"`
	Active        string        `json:"active,omitempty" doc:"Active basemap ID"`
	Suggested     string        `json:"suggested,omitempty" doc:"Suggested basemap ID"`
	Lon           float64       `json:"lon" doc:"Primary map center longitude"`
	Lat           float64       `json:"lat" doc:"Primary map center latitude"`
	Zoom          float64       `json:"zoom" doc:"Primary map zoom"`
	MiniMaps      []MiniMapView `json:"miniMaps" doc:"Minimaps in recency order"`
}

// ActiveURL returns the tile template of the active basemap.
func (v SwitcherView) ActiveURL() string { return v.active().URL }

// ActiveName returns the display name of the active basemap.
func (v SwitcherView) ActiveName() string { return v.active().Name }

func (v SwitcherView) active() MiniMapView {
	for _, m := range v.MiniMaps {
		if m.Active {
			return m
		}
	}
	return MiniMapView{}
}

// HistoryEntry is one recorded base layer switch.
type HistoryEntry struct {
	SessionID string `json:"sessionId" doc:"Session that switched"`
	From      string `json:"from,omitempty" doc:"Previous basemap ID"`
	To        string `json:"to" doc:"New basemap ID"`
	Name      string `json:"name" doc:"New basemap display name"`
	At        string `json:"at" doc:"RFC 3339 timestamp"`
}
