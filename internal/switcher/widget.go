package switcher

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
)

// Corner positions a widget can be placed in.
const (
	PositionTopLeft     = "topleft"
	PositionTopRight    = "topright"
	PositionBottomLeft  = "bottomleft"
	PositionBottomRight = "bottomright"
)

// Options configure a widget. Sizes are in pixels.
type Options struct {
	MiniMapLabelHeight int     `json:"miniMapLabelHeight" yaml:"miniMapLabelHeight" doc:"Height of the label under each minimap" default:"22"`
	MiniMapHeight      int     `json:"miniMapHeight" yaml:"miniMapHeight" doc:"Minimap height" default:"80"`
	MiniMapWidth       int     `json:"miniMapWidth" yaml:"miniMapWidth" doc:"Minimap width" default:"90"`
	MiniMapMargin      int     `json:"miniMapMargin" yaml:"miniMapMargin" doc:"Gap between expanded minimaps" default:"10"`
	MiniMapZoomOffset  float64 `json:"miniMapZoomOffset" yaml:"miniMapZoomOffset" doc:"Minimap zoom relative to the primary map" default:"-3"`
	Position           string  `json:"position" yaml:"position" enum:"topleft,topright,bottomleft,bottomright" doc:"Map corner" default:"topright"`
	AutoZIndex         bool    `json:"autoZIndex" yaml:"autoZIndex" doc:"Assign increasing z-indexes to layers" default:"true"`
	// HideSingleLayer hides the widget when only one layer is registered.
	// Off by default: a single-layer widget is shown and switching stays
	// enabled, matching the historical "at least one layer" check.
	HideSingleLayer bool `json:"hideSingleLayer" yaml:"hideSingleLayer" doc:"Hide the widget when only one layer exists" default:"false"`
}

// DefaultOptions returns the stock widget options.
func DefaultOptions() Options {
	return Options{
		MiniMapLabelHeight: 22,
		MiniMapHeight:      80,
		MiniMapWidth:       90,
		MiniMapMargin:      10,
		MiniMapZoomOffset:  -3,
		Position:           PositionTopRight,
		AutoZIndex:         true,
	}
}

// Height is the widget height: minimap plus label.
func (o Options) Height() int {
	return o.MiniMapHeight + o.MiniMapLabelHeight
}

// ContainerID is the element id of a layer's minimap container.
func ContainerID(id LayerID) mapengine.Container {
	return mapengine.Container(fmt.Sprintf("minimap-%d", id))
}

// Widget is the minimap layer switcher attached to one primary map.
type Widget struct {
	opts     Options
	registry *Registry
	factory  mapengine.Factory
	ui       UI
	log      zerolog.Logger

	primary    mapengine.Map
	pool       *MiniMapPool
	sync       *ViewportSynchronizer
	controller *Controller
	expansion  *Expansion
	moveSub    mapengine.Subscription
	hidden     bool
}

// New creates a widget for the given layers, registered in order.
func New(layers []NamedLayer, opts Options, factory mapengine.Factory, ui UI, log zerolog.Logger) *Widget {
	w := &Widget{
		opts:     opts,
		registry: NewRegistry(opts.AutoZIndex),
		factory:  factory,
		ui:       ui,
		log:      log.With().Str("component", "switcher").Logger(),
	}
	for _, nl := range layers {
		if _, ok := w.registry.Add(nl.Layer, nl.Name); !ok {
			w.log.Warn().Str("name", nl.Name).Msg("layer ignored: unsupported or duplicate definition")
		}
	}
	return w
}

// AddTo attaches the widget to a primary map: it subscribes to map moves,
// renders the minimaps, selects the initial layer and sizes the minimaps.
func (w *Widget) AddTo(m mapengine.Map) (*Widget, error) {
	w.primary = m
	w.pool = NewMiniMapPool(w.registry, m, w.factory, w.opts.MiniMapZoomOffset)
	w.sync = NewViewportSynchronizer(m, w.pool, w.registry, w.opts.MiniMapZoomOffset)
	w.controller = NewController(w.registry, m, w.ui, w.log)
	w.expansion = NewExpansion(w.registry, w.controller, w.sync, w.ui, w.opts.MiniMapWidth, w.opts.MiniMapMargin)
	w.controller.GateOn(w.expansion.Expanded)

	w.moveSub = m.On(mapengine.EventMove, func(mapengine.Event) {
		if err := w.expansion.OnPrimaryMove(); err != nil {
			w.log.Error().Err(err).Msg("minimap sync failed")
		}
	})
	m.WhenReady(w.sync.MarkReady)

	if err := w.render(); err != nil {
		return w, err
	}
	if err := w.expansion.OnPrimaryMove(); err != nil {
		return w, err
	}
	w.pool.InvalidateAll()
	return w, nil
}

func (w *Widget) render() error {
	for _, l := range w.registry.All() {
		container := w.ui.CreateMiniMapContainer(l)
		if err := w.pool.Create(l.ID, container); err != nil {
			return err
		}
	}

	if !w.enabled() {
		w.hidden = true
		w.ui.SetHidden(true)
		return nil
	}
	return w.controller.Init()
}

func (w *Widget) enabled() bool {
	if !w.registry.HasMultiple() {
		return false
	}
	return !(w.opts.HideSingleLayer && w.registry.Len() == 1)
}

// Remove detaches the widget from its primary map.
func (w *Widget) Remove() {
	if w.primary == nil {
		return
	}
	w.primary.Off(w.moveSub)
	w.primary = nil
}

// Select switches the primary map to a layer, as a click on its minimap.
func (w *Widget) Select(id LayerID) error {
	if w.controller == nil || w.hidden {
		return nil
	}
	return w.controller.SwitchTo(id)
}

// Expand opens the widget (pointer enter).
func (w *Widget) Expand() error {
	if w.expansion == nil || w.hidden {
		return nil
	}
	return w.expansion.Expand()
}

// Collapse closes the widget (pointer leave).
func (w *Widget) Collapse() error {
	if w.expansion == nil || w.hidden {
		return nil
	}
	return w.expansion.Collapse()
}

// Toggle opens or closes the widget (tap on touch devices).
func (w *Widget) Toggle() error {
	if w.expansion == nil || w.hidden {
		return nil
	}
	return w.expansion.Toggle()
}

// OnBaseLayerChange registers an observer for user switches. It must be
// called after AddTo.
func (w *Widget) OnBaseLayerChange(fn func(BaseLayerChange)) (cancel func()) {
	return w.controller.OnBaseLayerChange(fn)
}

// State returns the switch state.
func (w *Widget) State() State {
	if w.controller == nil {
		return State{}
	}
	return w.controller.State()
}

// Expanded reports whether the widget is expanded.
func (w *Widget) Expanded() bool {
	return w.expansion != nil && w.expansion.Expanded()
}

// Hidden reports whether the widget was hidden for lack of layers.
func (w *Widget) Hidden() bool { return w.hidden }

// Layers returns the registered layers in recency order.
func (w *Widget) Layers() []*Layer {
	out := make([]*Layer, 0, w.registry.Len())
	for _, l := range w.registry.All() {
		out = append(out, l)
	}
	return out
}

// Layer returns a registered layer.
func (w *Widget) Layer(id LayerID) (*Layer, error) {
	return w.registry.Find(id)
}

// Flags returns the current visual markers in recency order.
func (w *Widget) Flags() []MiniMapFlags {
	return Flags(w.State(), w.registry.IDs())
}

// Layout returns the current minimap placement.
func (w *Widget) Layout() Layout {
	if w.expansion == nil {
		return CollapsedLayout(w.registry.IDs())
	}
	return w.expansion.Layout()
}

// MiniMap returns the minimap of a layer.
func (w *Widget) MiniMap(id LayerID) (mapengine.MiniMap, error) {
	if w.pool == nil {
		return nil, fmt.Errorf("%w: %d", ErrMiniMapNotFound, id)
	}
	return w.pool.Get(id)
}

// Options returns the widget options.
func (w *Widget) Options() Options { return w.opts }
