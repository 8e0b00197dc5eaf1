// Package switcher is the layer-state coordination engine behind the minimap
// layer switcher: which layer is active, which is suggested next, keeping
// minimaps in step with the primary map, and swapping the primary map's base
// layer.
//
// All types here are single-threaded. They are driven from one event loop
// (a browser session on the server) and perform no locking of their own.
package switcher

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
)

var (
	// ErrLayerNotFound is returned when an identity is not in the registry.
	ErrLayerNotFound = errors.New("layer not found")
	// ErrMiniMapNotFound is returned when no minimap exists for an identity.
	ErrMiniMapNotFound = errors.New("minimap not found")
	// ErrMiniMapExists is returned when a minimap is created twice.
	ErrMiniMapExists = errors.New("minimap already exists")
)

// LayerID identifies a registered layer for the lifetime of a widget.
type LayerID uint64

// Layer is one switchable base layer.
type Layer struct {
	ID   LayerID
	Name string
	// Primary is the handle rendered on the primary map.
	Primary mapengine.Layer
	// Preview is an independent clone shown inside the layer's minimap; the
	// engine does not allow one layer instance on two maps.
	Preview mapengine.Layer
}

// NamedLayer is a caller-supplied layer definition.
type NamedLayer struct {
	Name  string
	Layer mapengine.Layer
}

// Registry is the ordered collection of known layers. Order encodes recency:
// the active layer is moved to the end on every switch, so the front holds the
// least recently used candidate.
type Registry struct {
	layers     []*Layer
	autoZIndex bool
	lastZIndex int
}

// NewRegistry creates an empty registry.
func NewRegistry(autoZIndex bool) *Registry {
	return &Registry{autoZIndex: autoZIndex}
}

// Add registers a layer definition under name. Definitions that are neither a
// tile layer nor a layer group, and definitions already registered, are
// ignored and reported with false.
func (r *Registry) Add(def mapengine.Layer, name string) (LayerID, bool) {
	var preview mapengine.Layer
	switch l := def.(type) {
	case *mapengine.TileLayer:
		preview = l.Clone()
	case *mapengine.LayerGroup:
		g := mapengine.NewLayerGroup()
		for _, sub := range l.Layers() {
			if tl, ok := sub.(*mapengine.TileLayer); ok {
				g.AddLayer(tl.Clone())
			}
		}
		preview = g
	default:
		return 0, false
	}

	id := LayerID(mapengine.Stamp(def))
	if _, err := r.Find(id); err == nil {
		return id, false
	}

	r.layers = append(r.layers, &Layer{
		ID:      id,
		Name:    name,
		Primary: def,
		Preview: preview,
	})

	if z, ok := def.(mapengine.ZIndexer); ok && r.autoZIndex {
		r.lastZIndex++
		z.SetZIndex(r.lastZIndex)
	}
	return id, true
}

// Find returns the layer with the given identity.
func (r *Registry) Find(id LayerID) (*Layer, error) {
	for _, l := range r.layers {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrLayerNotFound, id)
}

// MoveToEnd moves a layer to the tail of the ordering.
func (r *Registry) MoveToEnd(id LayerID) error {
	i := slices.IndexFunc(r.layers, func(l *Layer) bool { return l.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrLayerNotFound, id)
	}
	l := r.layers[i]
	r.layers = append(slices.Delete(r.layers, i, i+1), l)
	return nil
}

// All iterates the layers in current order. Breaking out of the range loop
// stops the iteration.
func (r *Registry) All() iter.Seq2[int, *Layer] {
	return func(yield func(int, *Layer) bool) {
		for i, l := range r.layers {
			if !yield(i, l) {
				return
			}
		}
	}
}

// FindFirst returns the first layer, in current order, matching pred.
func (r *Registry) FindFirst(pred func(*Layer) bool) (*Layer, bool) {
	for _, l := range r.All() {
		if pred(l) {
			return l, true
		}
	}
	return nil, false
}

// Front returns the layer at position 0.
func (r *Registry) Front() (*Layer, bool) {
	if len(r.layers) == 0 {
		return nil, false
	}
	return r.layers[0], true
}

// Len returns the number of registered layers.
func (r *Registry) Len() int { return len(r.layers) }

// IDs returns the identities in current order.
func (r *Registry) IDs() []LayerID {
	ids := make([]LayerID, len(r.layers))
	for i, l := range r.layers {
		ids[i] = l.ID
	}
	return ids
}

// HasMultiple reports whether switching is enabled. It is true for any
// non-empty registry, including a registry holding a single layer.
func (r *Registry) HasMultiple() bool {
	return len(r.layers) > 0
}
