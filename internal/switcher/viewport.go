package switcher

import (
	"github.com/joeblew999/plat-switcher/internal/mapengine"
)

// minimapView pans without animation and animates the zoom.
var minimapView = mapengine.ViewOptions{
	Pan:  mapengine.AnimateOptions{Animate: false},
	Zoom: mapengine.AnimateOptions{Animate: true},
}

// ViewportSynchronizer mirrors the primary map's center and zoom onto minimaps.
type ViewportSynchronizer struct {
	primary    mapengine.Map
	pool       *MiniMapPool
	registry   *Registry
	zoomOffset float64
	ready      bool
}

// NewViewportSynchronizer creates a synchronizer. It stays inert until
// MarkReady is called.
func NewViewportSynchronizer(primary mapengine.Map, pool *MiniMapPool, registry *Registry, zoomOffset float64) *ViewportSynchronizer {
	return &ViewportSynchronizer{
		primary:    primary,
		pool:       pool,
		registry:   registry,
		zoomOffset: zoomOffset,
	}
}

// MarkReady records that the primary map is fully initialized.
func (s *ViewportSynchronizer) MarkReady() { s.ready = true }

// Ready reports whether MarkReady has been called.
func (s *ViewportSynchronizer) Ready() bool { return s.ready }

func (s *ViewportSynchronizer) active() bool {
	return s.ready && s.registry.HasMultiple()
}

// SyncOne moves one minimap to the primary map's view. Calls made before the
// primary map is ready, or with no layers registered, are dropped.
func (s *ViewportSynchronizer) SyncOne(id LayerID) error {
	if !s.active() {
		return nil
	}
	mm, err := s.pool.Get(id)
	if err != nil {
		return err
	}
	mm.SetView(s.primary.Center(), s.primary.Zoom()+s.zoomOffset, minimapView)
	return nil
}

// SyncAll moves every minimap, in registry order.
func (s *ViewportSynchronizer) SyncAll() error {
	if !s.active() {
		return nil
	}
	for _, l := range s.registry.All() {
		if err := s.SyncOne(l.ID); err != nil {
			return err
		}
	}
	return nil
}
