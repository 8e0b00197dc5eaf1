package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
)

func TestBasemapServiceSeedsAndPersists(t *testing.T) {
	dir := t.TempDir()
	s := NewBasemapService(dir, DefaultBasemaps(), zerolog.Nop())
	require.Len(t, s.List(), 3)

	created, err := s.Create(BasemapConfig{Name: "Dark Matter", URL: "https://tiles/{z}/{x}/{y}.png"})
	require.NoError(t, err)
	assert.Equal(t, "dark_matter", created.ID)
	assert.FileExists(t, filepath.Join(dir, "basemaps.json"))

	// A reload ignores the seed and keeps the saved order.
	reloaded := NewBasemapService(dir, nil, zerolog.Nop())
	var ids []string
	for _, b := range reloaded.List() {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"osm", "topo", "imagery", "dark_matter"}, ids)
}

func TestBasemapServiceErrors(t *testing.T) {
	s := NewBasemapService(t.TempDir(), DefaultBasemaps(), zerolog.Nop())

	_, err := s.Create(BasemapConfig{ID: "osm", Name: "Again", URL: "https://x"})
	assert.ErrorIs(t, err, ErrBasemapExists)

	_, err = s.Create(BasemapConfig{Name: "Empty"})
	assert.ErrorIs(t, err, ErrBasemapInvalid)

	_, err = s.Create(BasemapConfig{Name: "Both", URL: "https://x", Group: []TileSource{{URL: "https://y"}}})
	assert.ErrorIs(t, err, ErrBasemapInvalid)

	_, err = s.Create(BasemapConfig{Name: "!!!", URL: "https://x"})
	assert.ErrorIs(t, err, ErrBasemapInvalid, "name yields an empty id")

	_, err = s.Update("missing", BasemapConfig{Name: "x", URL: "https://x"})
	assert.ErrorIs(t, err, ErrBasemapNotFound)

	assert.ErrorIs(t, s.Delete("missing"), ErrBasemapNotFound)
}

func TestBasemapServiceUpdateKeepsPosition(t *testing.T) {
	s := NewBasemapService(t.TempDir(), DefaultBasemaps(), zerolog.Nop())

	updated, err := s.Update("topo", BasemapConfig{Name: "Topo", URL: "https://topo/{z}/{x}/{y}.png"})
	require.NoError(t, err)
	assert.Equal(t, "topo", updated.ID)
	assert.Equal(t, "topo", s.List()[1].ID)
	assert.Equal(t, "Topo", s.List()[1].Name)

	require.NoError(t, s.Delete("osm"))
	_, ok := s.Get("osm")
	assert.False(t, ok)
	assert.Equal(t, "topo", s.List()[0].ID)
}

func TestBasemapServiceIgnoresCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basemaps.json"), []byte("{not json"), 0644))

	s := NewBasemapService(dir, DefaultBasemaps(), zerolog.Nop())
	assert.Len(t, s.List(), 3)
}

func TestBasemapServiceSkipsBadEntriesOnLoad(t *testing.T) {
	dir := t.TempDir()
	file := `[
  {"id": "osm", "name": "OpenStreetMap", "url": "https://osm/{z}/{x}/{y}.png"},
  {"id": "osm", "name": "Shadow", "url": "https://shadow/{z}/{x}/{y}.png"},
  {"id": "broken", "name": "Broken"},
  {"name": "Dark Matter", "url": "https://dark/{z}/{x}/{y}.png"}
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basemaps.json"), []byte(file), 0o644))

	s := NewBasemapService(dir, DefaultBasemaps(), zerolog.Nop())
	var ids []string
	for _, b := range s.List() {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"osm", "dark_matter"}, ids)

	osm, ok := s.Get("osm")
	require.True(t, ok)
	assert.Equal(t, "OpenStreetMap", osm.Name)
}

func TestInstantiateBuildsFreshLayers(t *testing.T) {
	s := NewBasemapService(t.TempDir(), DefaultBasemaps(), zerolog.Nop())

	a, b := s.Instantiate(), s.Instantiate()
	require.Len(t, a, 3)
	assert.NotEqual(t, mapengine.Stamp(a[0].Layer), mapengine.Stamp(b[0].Layer))

	tile, ok := a[0].Layer.(*mapengine.TileLayer)
	require.True(t, ok)
	assert.Equal(t, 19, tile.Options["maxZoom"])
	assert.Equal(t, []string{"a", "b", "c"}, tile.Options["subdomains"])

	group, ok := a[2].Layer.(*mapengine.LayerGroup)
	require.True(t, ok)
	assert.Len(t, group.Layers(), 2)
}

func TestGenerateID(t *testing.T) {
	assert.Equal(t, "open_street_map", generateID("Open Street Map"))
	assert.Equal(t, "esri_2024", generateID("Esri (2024)!"))
}
