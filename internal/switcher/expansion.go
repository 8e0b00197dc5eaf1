package switcher

// Expansion tracks whether the widget is expanded and decides which minimaps
// follow the primary map.
type Expansion struct {
	registry   *Registry
	controller *Controller
	sync       *ViewportSynchronizer
	ui         UI
	width      int
	margin     int
	expanded   bool
}

// NewExpansion creates a collapsed expansion controller. width and margin are
// the minimap width and gap used for the expanded layout.
func NewExpansion(registry *Registry, controller *Controller, sync *ViewportSynchronizer, ui UI, width, margin int) *Expansion {
	return &Expansion{
		registry:   registry,
		controller: controller,
		sync:       sync,
		ui:         ui,
		width:      width,
		margin:     margin,
	}
}

// Expanded reports the current state.
func (e *Expansion) Expanded() bool { return e.expanded }

// Expand lays the minimaps out side by side and brings them all up to date.
func (e *Expansion) Expand() error { return e.set(true) }

// Collapse stacks the minimaps and shrinks the widget.
func (e *Expansion) Collapse() error { return e.set(false) }

// Toggle flips the state; touch devices expand and collapse by tapping.
func (e *Expansion) Toggle() error { return e.set(!e.expanded) }

func (e *Expansion) set(expand bool) error {
	if e.expanded == expand {
		return nil
	}
	order := e.registry.IDs()
	if expand {
		if err := e.sync.SyncAll(); err != nil {
			return err
		}
		e.ui.ApplyLayout(ExpandedLayout(order, e.width, e.margin))
	} else {
		e.ui.ApplyLayout(CollapsedLayout(order))
	}
	e.expanded = expand
	return nil
}

// Layout returns the layout for the current state.
func (e *Expansion) Layout() Layout {
	if e.expanded {
		return ExpandedLayout(e.registry.IDs(), e.width, e.margin)
	}
	return CollapsedLayout(e.registry.IDs())
}

// OnPrimaryMove keeps minimaps in step with the primary map. All of them
// follow while expanded (touch devices can scroll the map with the widget
// open); only the suggested one is visible, and so synced, while collapsed.
func (e *Expansion) OnPrimaryMove() error {
	if e.expanded {
		return e.sync.SyncAll()
	}
	if !e.controller.Initialized() {
		return nil
	}
	return e.sync.SyncOne(e.controller.State().Suggested)
}
