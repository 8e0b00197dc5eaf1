package switcher

import (
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
)

// State is the switch state. It is the single source of truth for which layer
// is active and which is suggested; visual flags are derived from it.
type State struct {
	Active    LayerID `json:"active"`
	Suggested LayerID `json:"suggested"`
}

// BaseLayerChange is delivered to observers after a user switch.
type BaseLayerChange struct {
	Previous LayerID
	Current  *Layer
	State    State
}

// Controller is the layer switch state machine. It is the only writer of the
// registry order and of the primary map's base layer.
type Controller struct {
	registry *Registry
	primary  mapengine.Map
	ui       UI
	log      zerolog.Logger

	// expanded reports whether user switches are currently accepted.
	expanded func() bool

	state       State
	hasActive   bool
	initialized bool
	switching   bool

	observers map[int]func(BaseLayerChange)
	nextObs   int
}

// NewController creates a controller. User switches are always accepted until
// GateOn installs an expansion check.
func NewController(registry *Registry, primary mapengine.Map, ui UI, log zerolog.Logger) *Controller {
	return &Controller{
		registry:  registry,
		primary:   primary,
		ui:        ui,
		log:       log,
		observers: map[int]func(BaseLayerChange){},
	}
}

// GateOn makes user switches conditional on expanded returning true.
func (c *Controller) GateOn(expanded func() bool) {
	c.expanded = expanded
}

// State returns the current switch state.
func (c *Controller) State() State { return c.state }

// Initialized reports whether Init has selected an initial layer.
func (c *Controller) Initialized() bool { return c.initialized }

// OnBaseLayerChange registers fn for every user switch. The returned function
// removes the registration.
func (c *Controller) OnBaseLayerChange(fn func(BaseLayerChange)) (cancel func()) {
	c.nextObs++
	id := c.nextObs
	c.observers[id] = fn
	return func() { delete(c.observers, id) }
}

// Init picks the initial layer: the first one already shown on the primary map,
// otherwise the first registered. It then swaps to it the way a user switch
// would, so the registry order starts out normalized.
func (c *Controller) Init() error {
	if c.registry.Len() == 0 {
		return nil
	}

	initial, ok := c.registry.FindFirst(func(l *Layer) bool {
		return c.primary.HasLayer(l.Primary)
	})
	if !ok {
		initial, _ = c.registry.Front()
	}

	// The provisional active layer is the one swapped away from.
	if other, ok := c.registry.FindFirst(func(l *Layer) bool { return l.ID != initial.ID }); ok {
		c.state.Active = other.ID
		c.hasActive = true
	}

	if err := c.swap(initial.ID); err != nil {
		return err
	}
	// Only one base layer may stay on the primary map.
	for _, l := range c.registry.All() {
		if l.ID != initial.ID && c.primary.HasLayer(l.Primary) {
			c.primary.RemoveLayer(l.Primary)
		}
	}
	c.initialized = true
	c.log.Debug().Uint64("active", uint64(c.state.Active)).Uint64("suggested", uint64(c.state.Suggested)).Msg("initial layer selected")
	return nil
}

// SwitchTo makes id the active layer in response to a user selection.
// Selecting the active layer, selecting while collapsed, and selecting while a
// switch is already running are silently ignored.
func (c *Controller) SwitchTo(id LayerID) error {
	if !c.initialized || c.switching {
		return nil
	}
	if c.hasActive && id == c.state.Active {
		return nil
	}
	if c.expanded != nil && !c.expanded() {
		return nil
	}
	layer, err := c.registry.Find(id)
	if err != nil {
		return err
	}

	c.switching = true
	defer func() { c.switching = false }()

	previous := c.state.Active
	c.ui.SuspendTransitions()
	if err := c.swap(id); err != nil {
		c.ui.ResumeTransitions()
		return err
	}
	c.primary.Fire(mapengine.Event{Name: mapengine.EventBaseLayerChanged, Layer: layer.Primary})
	c.notify(BaseLayerChange{Previous: previous, Current: layer, State: c.state})
	c.ui.ResumeTransitions()

	c.log.Debug().Uint64("from", uint64(previous)).Uint64("to", uint64(id)).Str("name", layer.Name).Msg("base layer switched")
	return nil
}

// swap performs the state transition and the primary map mutation.
func (c *Controller) swap(id LayerID) error {
	next, err := c.registry.Find(id)
	if err != nil {
		return err
	}
	var prev *Layer
	if c.hasActive {
		if prev, err = c.registry.Find(c.state.Active); err != nil {
			return err
		}
	}

	if err := c.registry.MoveToEnd(id); err != nil {
		return err
	}
	front, _ := c.registry.Front()

	c.state = State{Active: id, Suggested: front.ID}
	c.hasActive = true
	c.ui.ApplyFlags(Flags(c.state, c.registry.IDs()))

	// Maps cannot share a layer instance: detach the old one before attaching.
	if prev != nil && prev.ID != next.ID {
		c.primary.RemoveLayer(prev.Primary)
	}
	if !c.primary.HasLayer(next.Primary) {
		c.primary.AddLayer(next.Primary)
	}
	return nil
}

func (c *Controller) notify(change BaseLayerChange) {
	for i := 1; i <= c.nextObs; i++ {
		if fn, ok := c.observers[i]; ok {
			fn(change)
		}
	}
}
