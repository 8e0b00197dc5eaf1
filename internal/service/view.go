package service

import (
	"maps"
	"slices"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
	"github.com/joeblew999/plat-switcher/internal/switcher"
)

// ViewModel is the server-side DOM of one widget. It implements switcher.UI by
// recording what the browser should show; the SSE layer renders it.
type ViewModel struct {
	containers   map[switcher.LayerID]mapengine.Container
	hidden       bool
	flags        []switcher.MiniMapFlags
	layout       switcher.Layout
	noTransition bool
	reflow       bool
}

// NewViewModel creates an empty view model.
func NewViewModel() *ViewModel {
	return &ViewModel{
		containers: make(map[switcher.LayerID]mapengine.Container),
		layout:     switcher.Layout{Offsets: map[switcher.LayerID]int{}},
	}
}

func (v *ViewModel) CreateMiniMapContainer(layer *switcher.Layer) mapengine.Container {
	c := switcher.ContainerID(layer.ID)
	v.containers[layer.ID] = c
	return c
}

func (v *ViewModel) SetHidden(hidden bool) { v.hidden = hidden }

func (v *ViewModel) ApplyFlags(flags []switcher.MiniMapFlags) {
	v.flags = slices.Clone(flags)
}

func (v *ViewModel) ApplyLayout(layout switcher.Layout) {
	v.layout = switcher.Layout{Width: layout.Width, Offsets: maps.Clone(layout.Offsets)}
}

func (v *ViewModel) SuspendTransitions() {
	v.noTransition = true
	v.reflow = true
}

func (v *ViewModel) ResumeTransitions() { v.noTransition = false }

// TakeReflow reports whether transitions were suspended since the last call.
// The browser must then apply the change without transitions, reflow, and
// restore them.
func (v *ViewModel) TakeReflow() bool {
	r := v.reflow
	v.reflow = false
	return r
}

// Container returns the element id created for a layer.
func (v *ViewModel) Container(id switcher.LayerID) (mapengine.Container, bool) {
	c, ok := v.containers[id]
	return c, ok
}

// Hidden reports whether the widget is hidden.
func (v *ViewModel) Hidden() bool { return v.hidden }

// Flags returns the last applied markers.
func (v *ViewModel) Flags() []switcher.MiniMapFlags { return slices.Clone(v.flags) }

// Layout returns the last applied placement.
func (v *ViewModel) Layout() switcher.Layout {
	return switcher.Layout{Width: v.layout.Width, Offsets: maps.Clone(v.layout.Offsets)}
}

// NoTransition reports whether transitions are currently suspended.
func (v *ViewModel) NoTransition() bool { return v.noTransition }
