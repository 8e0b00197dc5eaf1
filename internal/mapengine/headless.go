package mapengine

import (
	"math"
	"slices"

	"github.com/paulmach/orb"
)

// MapOptions configure a headless primary map.
type MapOptions struct {
	Center  orb.Point
	Zoom    float64
	MinZoom float64
	MaxZoom float64
	Layers  []Layer
	// Record keeps every fired event for Fired.
	Record bool
}

// HeadlessMap is an in-memory primary map. It keeps view and layer state the
// way a rendering engine would, without drawing anything. It is not safe for
// concurrent use; callers serialize access.
type HeadlessMap struct {
	center   orb.Point
	zoom     float64
	minZoom  float64
	maxZoom  float64
	layers   []Layer
	handlers map[string][]registered
	nextSub  uint64
	ready    bool
	onReady  []func()
	record   bool
	fired    []Event
}

type registered struct {
	id uint64
	h  Handler
}

var _ Map = (*HeadlessMap)(nil)

// NewMap creates a headless primary map. A zero MaxZoom defaults to 18.
func NewMap(opts MapOptions) *HeadlessMap {
	if opts.MaxZoom == 0 {
		opts.MaxZoom = 18
	}
	m := &HeadlessMap{
		center:   opts.Center,
		minZoom:  opts.MinZoom,
		maxZoom:  opts.MaxZoom,
		handlers: map[string][]registered{},
		record:   opts.Record,
	}
	m.zoom = m.clamp(opts.Zoom)
	for _, l := range opts.Layers {
		m.AddLayer(l)
	}
	return m
}

// Ready marks the map as fully initialized and runs queued WhenReady callbacks.
func (m *HeadlessMap) Ready() {
	if m.ready {
		return
	}
	m.ready = true
	queued := m.onReady
	m.onReady = nil
	for _, fn := range queued {
		fn()
	}
}

// IsReady reports whether Ready has been called.
func (m *HeadlessMap) IsReady() bool { return m.ready }

func (m *HeadlessMap) Center() orb.Point { return m.center }
func (m *HeadlessMap) Zoom() float64     { return m.zoom }
func (m *HeadlessMap) MinZoom() float64  { return m.minZoom }
func (m *HeadlessMap) MaxZoom() float64  { return m.maxZoom }

// SetView moves the map and fires a move event.
func (m *HeadlessMap) SetView(center orb.Point, zoom float64, _ ViewOptions) {
	m.center = center
	m.zoom = m.clamp(zoom)
	m.Fire(Event{Name: EventMove})
}

// AddLayer attaches a layer. Attaching an already attached layer is a no-op.
func (m *HeadlessMap) AddLayer(l Layer) {
	if l == nil || m.HasLayer(l) {
		return
	}
	m.layers = append(m.layers, l)
	m.Fire(Event{Name: EventLayerAdd, Layer: l})
}

// RemoveLayer detaches a layer. Removing a detached layer is a no-op.
func (m *HeadlessMap) RemoveLayer(l Layer) {
	if l == nil {
		return
	}
	i := slices.IndexFunc(m.layers, func(x Layer) bool { return Stamp(x) == Stamp(l) })
	if i < 0 {
		return
	}
	m.layers = slices.Delete(m.layers, i, i+1)
	m.Fire(Event{Name: EventLayerRemove, Layer: l})
}

func (m *HeadlessMap) HasLayer(l Layer) bool {
	if l == nil {
		return false
	}
	return slices.ContainsFunc(m.layers, func(x Layer) bool { return Stamp(x) == Stamp(l) })
}

// Layers returns the attached layers in attach order.
func (m *HeadlessMap) Layers() []Layer {
	return slices.Clone(m.layers)
}

// Fire delivers an event to its subscribers in subscription order.
func (m *HeadlessMap) Fire(e Event) {
	if m.record {
		m.fired = append(m.fired, e)
	}
	for _, r := range slices.Clone(m.handlers[e.Name]) {
		r.h(e)
	}
}

// Fired returns every event fired so far. It is empty unless the map was
// created with Record.
func (m *HeadlessMap) Fired() []Event {
	return slices.Clone(m.fired)
}

func (m *HeadlessMap) On(name string, h Handler) Subscription {
	m.nextSub++
	m.handlers[name] = append(m.handlers[name], registered{id: m.nextSub, h: h})
	return Subscription{name: name, id: m.nextSub}
}

func (m *HeadlessMap) Off(sub Subscription) {
	m.handlers[sub.name] = slices.DeleteFunc(m.handlers[sub.name], func(r registered) bool {
		return r.id == sub.id
	})
}

// WhenReady runs fn now if the map is ready, otherwise once Ready is called.
func (m *HeadlessMap) WhenReady(fn func()) {
	if m.ready {
		fn()
		return
	}
	m.onReady = append(m.onReady, fn)
}

func (m *HeadlessMap) clamp(z float64) float64 {
	return math.Max(m.minZoom, math.Min(m.maxZoom, z))
}

// ---------------------------------------------------------------------------
// Minimaps
// ---------------------------------------------------------------------------

// View is one SetView call received by a minimap.
type View struct {
	Center  orb.Point
	Zoom    float64
	Options ViewOptions
}

// HeadlessMiniMap keeps the view it was asked to show.
type HeadlessMiniMap struct {
	container   Container
	options     MiniMapOptions
	record      bool
	last        View
	hasView     bool
	views       []View
	invalidated int
}

var _ MiniMap = (*HeadlessMiniMap)(nil)

func (mm *HeadlessMiniMap) SetView(center orb.Point, zoom float64, opts ViewOptions) {
	mm.last = View{Center: center, Zoom: zoom, Options: opts}
	mm.hasView = true
	if mm.record {
		mm.views = append(mm.views, mm.last)
	}
}

func (mm *HeadlessMiniMap) Container() Container { return mm.container }

func (mm *HeadlessMiniMap) InvalidateSize() { mm.invalidated++ }

// Options returns the options the minimap was created with.
func (mm *HeadlessMiniMap) Options() MiniMapOptions { return mm.options }

// Views returns every view applied so far. It is empty unless the minimap
// came from a recording factory.
func (mm *HeadlessMiniMap) Views() []View { return slices.Clone(mm.views) }

// LastView returns the most recent view, if any.
func (mm *HeadlessMiniMap) LastView() (View, bool) {
	return mm.last, mm.hasView
}

// Invalidations counts InvalidateSize calls.
func (mm *HeadlessMiniMap) Invalidations() int { return mm.invalidated }

// HeadlessFactory creates HeadlessMiniMaps and remembers them by container.
type HeadlessFactory struct {
	created map[Container]*HeadlessMiniMap
	record  bool
}

var _ Factory = (*HeadlessFactory)(nil)

// NewHeadlessFactory creates an empty factory.
func NewHeadlessFactory() *HeadlessFactory {
	return &HeadlessFactory{created: map[Container]*HeadlessMiniMap{}}
}

// NewRecordingFactory creates a factory whose minimaps keep every view.
func NewRecordingFactory() *HeadlessFactory {
	return &HeadlessFactory{created: map[Container]*HeadlessMiniMap{}, record: true}
}

func (f *HeadlessFactory) NewMiniMap(container Container, opts MiniMapOptions) MiniMap {
	mm := &HeadlessMiniMap{container: container, options: opts, record: f.record}
	f.created[container] = mm
	return mm
}

// MiniMap returns the minimap created for a container.
func (f *HeadlessFactory) MiniMap(container Container) (*HeadlessMiniMap, bool) {
	mm, ok := f.created[container]
	return mm, ok
}

// Count returns the number of minimaps created.
func (f *HeadlessFactory) Count() int { return len(f.created) }
