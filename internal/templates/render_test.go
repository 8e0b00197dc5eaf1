package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type miniMap struct {
	Container, Basemap, Name, URL string
	Active, Suggested             bool
	Left                          int
	Lon, Lat, Zoom                float64
}

type widget struct {
	SessionID, Position, Active string
	Hidden, Expanded            bool
	NoTransition                bool
	Width, Height               int
	MiniMapWidth, MiniMapHeight int
	Lon, Lat, Zoom              float64
	MiniMaps                    []miniMap
}

func (w widget) ActiveURL() string { return "https://tiles/{z}/{x}/{y}.png" }

func TestTileURL(t *testing.T) {
	assert.Equal(t, "https://a.tile/0/0/0.png", TileURL("https://{s}.tile/{z}/{x}/{y}.png", 13.4, 52.5, -3))
	assert.Equal(t, "https://tile/1/1/0.png", TileURL("https://tile/{z}/{x}/{y}.png", 13.4, 52.5, 1.7))
	assert.Equal(t, "https://tile/10/550/335.png", TileURL("https://tile/{z}/{x}/{y}.png", 13.4, 52.5, 10))
	assert.Empty(t, TileURL("", 0, 0, 3))
}

func TestRenderSwitcher(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render("switcher", widget{
		SessionID:     "s1",
		Position:      "topright",
		Expanded:      true,
		NoTransition:  true,
		Width:         290,
		Height:        102,
		MiniMapWidth:  90,
		MiniMapHeight: 80,
		MiniMaps: []miniMap{
			{Container: "minimap-1", Basemap: "osm", Name: "OpenStreetMap", URL: "https://tile/{z}/{x}/{y}.png", Suggested: true},
			{Container: "minimap-2", Basemap: "topo", Name: "Topo", Active: true, Left: 100},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, html, `class="minimap-switcher topright expanded notransition"`)
	assert.Contains(t, html, "width: 290px")
	assert.Contains(t, html, `id="minimap-1"`)
	assert.Contains(t, html, `class="minimap suggested"`)
	assert.Contains(t, html, `class="minimap active"`)
	assert.Contains(t, html, "left: 100px")
	assert.Contains(t, html, "/ui/sessions/s1/select/topo")
	assert.Contains(t, html, "OpenStreetMap")
}

func TestRenderCollapsedUsesMiniMapWidth(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render("switcher", widget{SessionID: "s1", Position: "bottomleft", MiniMapWidth: 90, Height: 102})
	require.NoError(t, err)
	assert.Contains(t, html, "width: 90px")
	assert.NotContains(t, html, "expanded")
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	_, err = r.Render("nope", nil)
	assert.Error(t, err)
	assert.Panics(t, func() { r.MustRender("nope", nil) })
}
