package switcher

import "github.com/joeblew999/plat-switcher/internal/mapengine"

// UI is the DOM side of the widget: element creation, class toggling and
// transitions. The switcher decides what to show; the UI shows it.
type UI interface {
	// CreateMiniMapContainer builds the element a layer's minimap renders into.
	CreateMiniMapContainer(layer *Layer) mapengine.Container
	// SetHidden hides or shows the whole widget.
	SetHidden(hidden bool)
	// ApplyFlags sets the active/suggested markers on every minimap.
	ApplyFlags(flags []MiniMapFlags)
	// ApplyLayout positions minimaps and sizes the widget.
	ApplyLayout(layout Layout)
	// SuspendTransitions disables CSS transitions so a swap is instant.
	SuspendTransitions()
	// ResumeTransitions forces a reflow and re-enables transitions.
	ResumeTransitions()
}

// MiniMapFlags are the visual markers of one minimap.
type MiniMapFlags struct {
	ID        LayerID `json:"id"`
	Active    bool    `json:"active"`
	Suggested bool    `json:"suggested"`
}

// Flags projects a switch state onto the minimaps in order. Exactly one entry
// is active and exactly one is suggested, whatever the expansion state.
func Flags(state State, order []LayerID) []MiniMapFlags {
	flags := make([]MiniMapFlags, len(order))
	for i, id := range order {
		flags[i] = MiniMapFlags{
			ID:        id,
			Active:    id == state.Active,
			Suggested: id == state.Suggested,
		}
	}
	return flags
}

// Layout is the horizontal placement of minimaps inside the widget, in pixels.
type Layout struct {
	Width   int             `json:"width"`
	Offsets map[LayerID]int `json:"offsets"`
}

// ExpandedLayout places minimaps side by side in order.
func ExpandedLayout(order []LayerID, width, margin int) Layout {
	l := Layout{Offsets: make(map[LayerID]int, len(order))}
	for i, id := range order {
		l.Offsets[id] = i * (width + margin)
	}
	if len(order) > 0 {
		l.Width = len(order)*(width+margin) - margin
	}
	return l
}

// CollapsedLayout stacks every minimap at offset 0 in a zero-width widget.
func CollapsedLayout(order []LayerID) Layout {
	l := Layout{Offsets: make(map[LayerID]int, len(order))}
	for _, id := range order {
		l.Offsets[id] = 0
	}
	return l
}

// NopUI discards every UI request. Useful when only the state is of interest.
type NopUI struct{}

func (NopUI) CreateMiniMapContainer(layer *Layer) mapengine.Container {
	return ContainerID(layer.ID)
}
func (NopUI) SetHidden(bool)            {}
func (NopUI) ApplyFlags([]MiniMapFlags) {}
func (NopUI) ApplyLayout(Layout)        {}
func (NopUI) SuspendTransitions()       {}
func (NopUI) ResumeTransitions()        {}
