package switcher

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
)

func TestAddToCreatesMiniMaps(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil, "A", "B", "C")

	assert.Equal(t, 3, f.factory.Count())
	for i, n := range []string{"A", "B", "C"} {
		mm := f.miniMap(t, n)
		opts := mm.Options()
		assert.Equal(t, -3.0, opts.MinZoom)
		assert.Equal(t, 15.0, opts.MaxZoom)
		assert.False(t, opts.Dragging || opts.ScrollWheelZoom || opts.DoubleClickZoom || opts.BoxZoom || opts.Inertia || opts.WorldCopyJump)
		require.Len(t, opts.Layers, 1)
		assert.Equal(t, f.tiles[i].URL, opts.Layers[0].(*mapengine.TileLayer).URL)
		assert.NotSame(t, f.tiles[i], opts.Layers[0], "minimaps get the preview clone")
		assert.Equal(t, 1, mm.Invalidations())
	}
}

func TestAddToSyncsSuggestedMiniMap(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil, "A", "B", "C")

	v, ok := f.miniMap(t, "B").LastView()
	require.True(t, ok)
	assert.Equal(t, 7.0, v.Zoom)
	assert.Empty(t, f.miniMap(t, "A").Views())
}

func TestMiniMapCreatedOnce(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil, "A")
	err := f.widget.pool.Create(f.ids["A"], "again")
	assert.ErrorIs(t, err, ErrMiniMapExists)

	_, err = f.widget.MiniMap(LayerID(0))
	assert.ErrorIs(t, err, ErrMiniMapNotFound)
}

func TestNoLayersHidesWidget(t *testing.T) {
	ui := &recordingUI{}
	primary := mapengine.NewMap(mapengine.MapOptions{Zoom: 3})
	primary.Ready()

	w, err := New(nil, DefaultOptions(), mapengine.NewHeadlessFactory(), ui, zerolog.Nop()).AddTo(primary)
	require.NoError(t, err)

	assert.True(t, w.Hidden())
	assert.True(t, ui.hidden)
	assert.Equal(t, State{}, w.State())
	require.NoError(t, w.Expand())
	assert.False(t, w.Expanded())
	assert.Empty(t, primary.Layers())
}

// Known boundary, pending clarification: a single layer still enables the
// widget, and that layer is both active and suggested.
func TestSingleLayerKnownBoundary(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil, "Only")

	assert.False(t, f.widget.Hidden())
	assert.Equal(t, State{Active: f.ids["Only"], Suggested: f.ids["Only"]}, f.widget.State())
	assert.Equal(t, []string{"Only"}, f.attached())

	require.NoError(t, f.widget.Expand())
	require.NoError(t, f.widget.Select(f.ids["Only"]))
	assert.Empty(t, f.baseLayerEvents())
}

func TestHideSingleLayerOption(t *testing.T) {
	opts := DefaultOptions()
	opts.HideSingleLayer = true
	f := newFixture(t, opts, nil, "Only")

	assert.True(t, f.widget.Hidden())
	assert.True(t, f.ui.hidden)
	assert.Equal(t, State{}, f.widget.State())
	assert.Empty(t, f.attached(), "no switch logic runs")
}

func TestRemoveStopsFollowingMoves(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil, "A", "B")
	n := len(f.miniMap(t, "B").Views())

	f.widget.Remove()
	f.primary.SetView(berlin, 4, mapengine.ViewOptions{})

	assert.Len(t, f.miniMap(t, "B").Views(), n)
}

func TestOptionsHeight(t *testing.T) {
	assert.Equal(t, 102, DefaultOptions().Height())
}
