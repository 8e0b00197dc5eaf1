// Package mapengine describes the map-rendering engine the switcher drives.
//
// The engine owns tile loading, pan/zoom math and rendering. The switcher only
// sees the narrow surface below: a primary map, read-only minimaps, and layer
// definitions that can be structurally cloned. A headless implementation
// (see headless.go) backs server sessions and tests.
package mapengine

import (
	"maps"
	"sync/atomic"

	"github.com/paulmach/orb"
)

// Event names fired on a primary map.
const (
	EventMove             = "move"
	EventLayerAdd         = "layeradd"
	EventLayerRemove      = "layerremove"
	EventBaseLayerChanged = "baselayerchanged"
)

// Event is a payload fired on a primary map.
type Event struct {
	Name  string
	Layer Layer // set for layer events
}

// Handler receives events subscribed with On.
type Handler func(Event)

// Subscription identifies a handler registration so it can be removed with Off.
type Subscription struct {
	name string
	id   uint64
}

// AnimateOptions toggles animation for one half of a view change.
type AnimateOptions struct {
	Animate bool `json:"animate"`
}

// ViewOptions control how SetView animates.
type ViewOptions struct {
	Pan  AnimateOptions `json:"pan"`
	Zoom AnimateOptions `json:"zoom"`
}

// Container is the DOM element id a minimap is bound to.
type Container string

// Map is the primary map handle.
type Map interface {
	Center() orb.Point
	Zoom() float64
	MinZoom() float64
	MaxZoom() float64
	SetView(center orb.Point, zoom float64, opts ViewOptions)
	AddLayer(l Layer)
	RemoveLayer(l Layer)
	HasLayer(l Layer) bool
	Fire(e Event)
	On(name string, h Handler) Subscription
	Off(sub Subscription)
	WhenReady(fn func())
}

// MiniMap is a read-only preview map.
type MiniMap interface {
	SetView(center orb.Point, zoom float64, opts ViewOptions)
	Container() Container
	InvalidateSize()
}

// MiniMapOptions mirror the map constructor options of the engine.
type MiniMapOptions struct {
	Dragging           bool
	TouchZoom          bool
	ScrollWheelZoom    bool
	DoubleClickZoom    bool
	BoxZoom            bool
	TrackResize        bool
	AttributionControl bool
	ZoomControl        bool
	Inertia            bool
	WorldCopyJump      bool
	Layers             []Layer
	MinZoom            float64
	MaxZoom            float64
}

// Factory instantiates minimaps.
type Factory interface {
	NewMiniMap(container Container, opts MiniMapOptions) MiniMap
}

// ---------------------------------------------------------------------------
// Layers
// ---------------------------------------------------------------------------

// Layer is a layer definition the engine can attach to a map.
type Layer interface {
	stamp() uint64
}

// ZIndexer is implemented by layers whose stacking order can be set.
type ZIndexer interface {
	SetZIndex(z int)
}

var lastStamp atomic.Uint64

type stamped struct {
	id atomic.Uint64
}

func (s *stamped) stamp() uint64 {
	if id := s.id.Load(); id != 0 {
		return id
	}
	s.id.CompareAndSwap(0, lastStamp.Add(1))
	return s.id.Load()
}

// Stamp returns the stable identity of a layer instance, assigning one on
// first use. Clones get their own stamp.
func Stamp(l Layer) uint64 {
	return l.stamp()
}

// TileLayer is a layer backed by a URL template such as
// "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png".
type TileLayer struct {
	stamped
	URL     string
	Options map[string]any
	zIndex  int
}

// NewTileLayer creates a tile layer. The options map is copied.
func NewTileLayer(url string, options map[string]any) *TileLayer {
	return &TileLayer{URL: url, Options: copyOptions(options)}
}

// Clone returns a new tile layer with the same source parameters and no
// shared mutable state.
func (t *TileLayer) Clone() *TileLayer {
	return NewTileLayer(t.URL, t.Options)
}

// SetZIndex implements ZIndexer.
func (t *TileLayer) SetZIndex(z int) {
	t.zIndex = z
}

// ZIndex returns the z-index last set on the layer.
func (t *TileLayer) ZIndex() int {
	return t.zIndex
}

// LayerGroup bundles several layers that are shown together.
type LayerGroup struct {
	stamped
	layers []Layer
}

// NewLayerGroup creates a group from the given layers.
func NewLayerGroup(layers ...Layer) *LayerGroup {
	g := &LayerGroup{}
	for _, l := range layers {
		g.AddLayer(l)
	}
	return g
}

// AddLayer appends a sub-layer.
func (g *LayerGroup) AddLayer(l Layer) {
	g.layers = append(g.layers, l)
}

// Layers returns the sub-layers in insertion order.
func (g *LayerGroup) Layers() []Layer {
	out := make([]Layer, len(g.layers))
	copy(out, g.layers)
	return out
}

func copyOptions(options map[string]any) map[string]any {
	if options == nil {
		return map[string]any{}
	}
	out := maps.Clone(options)
	for k, v := range out {
		switch vv := v.(type) {
		case map[string]any:
			out[k] = copyOptions(vv)
		case []any:
			out[k] = append([]any(nil), vv...)
		case []string:
			out[k] = append([]string(nil), vv...)
		}
	}
	return out
}
