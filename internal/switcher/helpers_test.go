package switcher

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
)

// recordingUI keeps the last request of each kind and a call log.
type recordingUI struct {
	calls   []string
	flags   []MiniMapFlags
	layout  Layout
	layouts int
	hidden  bool
}

func (u *recordingUI) CreateMiniMapContainer(l *Layer) mapengine.Container {
	u.calls = append(u.calls, "create")
	return ContainerID(l.ID)
}

func (u *recordingUI) SetHidden(hidden bool) {
	u.calls = append(u.calls, "hidden")
	u.hidden = hidden
}

func (u *recordingUI) ApplyFlags(flags []MiniMapFlags) {
	u.calls = append(u.calls, "flags")
	u.flags = flags
}

func (u *recordingUI) ApplyLayout(l Layout) {
	u.calls = append(u.calls, "layout")
	u.layout = l
	u.layouts++
}

func (u *recordingUI) SuspendTransitions() { u.calls = append(u.calls, "suspend") }
func (u *recordingUI) ResumeTransitions()  { u.calls = append(u.calls, "resume") }

func (u *recordingUI) reset() { u.calls = nil }

type fixture struct {
	primary *mapengine.HeadlessMap
	factory *mapengine.HeadlessFactory
	ui      *recordingUI
	widget  *Widget
	tiles   []*mapengine.TileLayer
	ids     map[string]LayerID
}

var berlin = orb.Point{13.405, 52.52}

func tileLayers(names ...string) ([]NamedLayer, []*mapengine.TileLayer) {
	var named []NamedLayer
	var tiles []*mapengine.TileLayer
	for _, n := range names {
		tl := mapengine.NewTileLayer(fmt.Sprintf("https://tiles.example.com/%s/{z}/{x}/{y}.png", n), map[string]any{"maxZoom": 18})
		named = append(named, NamedLayer{Name: n, Layer: tl})
		tiles = append(tiles, tl)
	}
	return named, tiles
}

// newFixture builds a ready primary map and a widget over freshly created tile
// layers named after names. setup may pre-attach layers before AddTo.
func newFixture(t *testing.T, opts Options, setup func(m *mapengine.HeadlessMap, tiles []*mapengine.TileLayer), names ...string) *fixture {
	t.Helper()

	named, tiles := tileLayers(names...)
	primary := mapengine.NewMap(mapengine.MapOptions{Center: berlin, Zoom: 10, MinZoom: 0, MaxZoom: 18, Record: true})
	if setup != nil {
		setup(primary, tiles)
	}
	primary.Ready()

	f := &fixture{
		primary: primary,
		factory: mapengine.NewRecordingFactory(),
		ui:      &recordingUI{},
		tiles:   tiles,
		ids:     map[string]LayerID{},
	}
	w, err := New(named, opts, f.factory, f.ui, zerolog.Nop()).AddTo(primary)
	require.NoError(t, err)
	f.widget = w
	for i, n := range names {
		f.ids[n] = LayerID(mapengine.Stamp(tiles[i]))
	}
	return f
}

func (f *fixture) order() []string {
	byID := map[LayerID]string{}
	for n, id := range f.ids {
		byID[id] = n
	}
	var out []string
	for _, l := range f.widget.Layers() {
		out = append(out, byID[l.ID])
	}
	return out
}

// attached returns the names of registered layers shown on the primary map.
func (f *fixture) attached() []string {
	var out []string
	for i, tl := range f.tiles {
		if f.primary.HasLayer(tl) {
			for n, id := range f.ids {
				if id == LayerID(mapengine.Stamp(f.tiles[i])) {
					out = append(out, n)
				}
			}
		}
	}
	return out
}

func (f *fixture) miniMap(t *testing.T, name string) *mapengine.HeadlessMiniMap {
	t.Helper()
	mm, ok := f.factory.MiniMap(ContainerID(f.ids[name]))
	require.True(t, ok, "no minimap for %s", name)
	return mm
}

func (f *fixture) baseLayerEvents() []mapengine.Event {
	var out []mapengine.Event
	for _, e := range f.primary.Fired() {
		if e.Name == mapengine.EventBaseLayerChanged {
			out = append(out, e)
		}
	}
	return out
}
