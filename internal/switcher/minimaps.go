package switcher

import (
	"fmt"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
)

// MiniMapPool owns one read-only minimap per registered layer.
type MiniMapPool struct {
	registry   *Registry
	primary    mapengine.Map
	factory    mapengine.Factory
	zoomOffset float64
	maps       map[LayerID]mapengine.MiniMap
}

// NewMiniMapPool creates an empty pool for the layers of registry. Minimap zoom
// ranges are the primary map's range shifted by zoomOffset.
func NewMiniMapPool(registry *Registry, primary mapengine.Map, factory mapengine.Factory, zoomOffset float64) *MiniMapPool {
	return &MiniMapPool{
		registry:   registry,
		primary:    primary,
		factory:    factory,
		zoomOffset: zoomOffset,
		maps:       map[LayerID]mapengine.MiniMap{},
	}
}

// Create instantiates the minimap for a layer inside container. It must be
// called once per identity.
func (p *MiniMapPool) Create(id LayerID, container mapengine.Container) error {
	if _, exists := p.maps[id]; exists {
		return fmt.Errorf("%w: %d", ErrMiniMapExists, id)
	}
	layer, err := p.registry.Find(id)
	if err != nil {
		return err
	}

	// Every interaction flag is left off: minimaps only preview.
	p.maps[id] = p.factory.NewMiniMap(container, mapengine.MiniMapOptions{
		Layers:  []mapengine.Layer{layer.Preview},
		MinZoom: p.primary.MinZoom() + p.zoomOffset,
		MaxZoom: p.primary.MaxZoom() + p.zoomOffset,
	})
	return nil
}

// Get returns the minimap for a layer.
func (p *MiniMapPool) Get(id LayerID) (mapengine.MiniMap, error) {
	mm, ok := p.maps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrMiniMapNotFound, id)
	}
	return mm, nil
}

// InvalidateAll asks every minimap to recompute its size. Call once the
// widget's container is attached to the document.
func (p *MiniMapPool) InvalidateAll() {
	for _, l := range p.registry.All() {
		if mm, ok := p.maps[l.ID]; ok {
			mm.InvalidateSize()
		}
	}
}
