package switcher

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
)

func expandedFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	f := newFixture(t, DefaultOptions(), nil, names...)
	require.NoError(t, f.widget.Expand())
	return f
}

func TestInitialSelectionPicksFirstLayer(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil, "A", "B", "C")

	st := f.widget.State()
	assert.Equal(t, f.ids["A"], st.Active)
	assert.Equal(t, f.ids["B"], st.Suggested)
	assert.Equal(t, []string{"B", "C", "A"}, f.order())
	assert.Equal(t, []string{"A"}, f.attached())
	assert.Empty(t, f.baseLayerEvents(), "initial selection is not a user switch")
}

func TestInitialSelectionPrefersAttachedLayer(t *testing.T) {
	f := newFixture(t, DefaultOptions(), func(m *mapengine.HeadlessMap, tiles []*mapengine.TileLayer) {
		m.AddLayer(tiles[2])
	}, "A", "B", "C")

	st := f.widget.State()
	assert.Equal(t, f.ids["C"], st.Active)
	assert.Equal(t, f.ids["A"], st.Suggested)
	assert.Equal(t, []string{"A", "B", "C"}, f.order())
	assert.Equal(t, []string{"C"}, f.attached())
}

func TestInitialSelectionLeavesOneBaseLayer(t *testing.T) {
	f := newFixture(t, DefaultOptions(), func(m *mapengine.HeadlessMap, tiles []*mapengine.TileLayer) {
		m.AddLayer(tiles[1])
		m.AddLayer(tiles[2])
	}, "A", "B", "C")

	assert.Equal(t, f.ids["B"], f.widget.State().Active)
	assert.Equal(t, []string{"B"}, f.attached())
}

func TestSwitchMovesLayerToTail(t *testing.T) {
	f := expandedFixture(t, "A", "B", "C")

	require.NoError(t, f.widget.Select(f.ids["B"]))

	assert.Equal(t, []string{"C", "A", "B"}, f.order())
	assert.Equal(t, State{Active: f.ids["B"], Suggested: f.ids["C"]}, f.widget.State())
	assert.Equal(t, []string{"B"}, f.attached())
}

func TestSwitchToActiveIsNoop(t *testing.T) {
	f := expandedFixture(t, "A", "B", "C")
	before := f.order()
	fired := len(f.primary.Fired())
	f.ui.reset()

	require.NoError(t, f.widget.Select(f.ids["A"]))

	assert.Equal(t, before, f.order())
	assert.Len(t, f.primary.Fired(), fired, "no detach, attach or notification")
	assert.Empty(t, f.ui.calls)
}

func TestSwitchIgnoredWhileCollapsed(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil, "A", "B", "C")

	require.NoError(t, f.widget.Select(f.ids["B"]))

	assert.Equal(t, f.ids["A"], f.widget.State().Active)
	assert.Empty(t, f.baseLayerEvents())
}

func TestSwitchUnknownLayer(t *testing.T) {
	f := expandedFixture(t, "A", "B")

	err := f.widget.Select(LayerID(0))
	assert.ErrorIs(t, err, ErrLayerNotFound)
	assert.Equal(t, f.ids["A"], f.widget.State().Active)
}

func TestSwitchNotifiesObservers(t *testing.T) {
	f := expandedFixture(t, "A", "B", "C")

	var changes []BaseLayerChange
	cancel := f.widget.OnBaseLayerChange(func(c BaseLayerChange) { changes = append(changes, c) })

	require.NoError(t, f.widget.Select(f.ids["C"]))

	events := f.baseLayerEvents()
	require.Len(t, events, 1)
	assert.Same(t, f.tiles[2], events[0].Layer)

	require.Len(t, changes, 1)
	assert.Equal(t, f.ids["A"], changes[0].Previous)
	assert.Equal(t, f.ids["C"], changes[0].Current.ID)
	assert.Equal(t, f.widget.State(), changes[0].State)

	cancel()
	require.NoError(t, f.widget.Select(f.ids["A"]))
	assert.Len(t, changes, 1)
	assert.Len(t, f.baseLayerEvents(), 2)
}

func TestSwitchSuspendsTransitionsAroundSwap(t *testing.T) {
	f := expandedFixture(t, "A", "B")
	f.ui.reset()

	require.NoError(t, f.widget.Select(f.ids["B"]))

	assert.Equal(t, []string{"suspend", "flags", "resume"}, f.ui.calls)
}

func TestSwitchDuringSwitchIsIgnored(t *testing.T) {
	f := expandedFixture(t, "A", "B", "C")

	var nestedErr error
	f.widget.OnBaseLayerChange(func(BaseLayerChange) {
		nestedErr = f.widget.Select(f.ids["A"])
	})

	require.NoError(t, f.widget.Select(f.ids["B"]))
	require.NoError(t, nestedErr)
	assert.Equal(t, f.ids["B"], f.widget.State().Active)
	assert.Len(t, f.baseLayerEvents(), 1)
}

func TestSwitchFlagsProjectState(t *testing.T) {
	f := expandedFixture(t, "A", "B", "C")
	require.NoError(t, f.widget.Select(f.ids["B"]))

	var active, suggested []LayerID
	for _, fl := range f.ui.flags {
		if fl.Active {
			active = append(active, fl.ID)
		}
		if fl.Suggested {
			suggested = append(suggested, fl.ID)
		}
	}
	assert.Equal(t, []LayerID{f.ids["B"]}, active)
	assert.Equal(t, []LayerID{f.ids["C"]}, suggested)

	require.NoError(t, f.widget.Collapse())
	assert.Equal(t, f.ui.flags, f.widget.Flags(), "flags do not depend on expansion")
}

func TestSwitchSequenceInvariants(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E"}
	f := expandedFixture(t, names...)
	initial := f.order()
	slices.Sort(initial)

	rng := rand.New(rand.NewPCG(7, 11))
	for range 200 {
		target := names[rng.IntN(len(names))]
		require.NoError(t, f.widget.Select(f.ids[target]))

		st := f.widget.State()
		assert.Equal(t, f.ids[target], st.Active)
		assert.Equal(t, []string{target}, f.attached())

		order := f.order()
		front := order[0]
		assert.Equal(t, f.ids[front], st.Suggested)
		assert.NotEqual(t, target, front)
		assert.Equal(t, target, order[len(order)-1])

		sorted := slices.Clone(order)
		slices.Sort(sorted)
		assert.Equal(t, initial, sorted, "order stays a permutation")
	}
}
