package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-switcher/internal/service"
	"github.com/joeblew999/plat-switcher/internal/switcher"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, switcher.DefaultOptions(), cfg.Widget)
	assert.Equal(t, DefaultConfig().Map, cfg.Map)
	assert.Len(t, cfg.Basemaps, len(service.DefaultBasemaps()))
	assert.True(t, cfg.History.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switcher.yaml")

	original := DefaultConfig()
	original.Widget.MiniMapWidth = 120
	original.Widget.Position = switcher.PositionBottomLeft
	original.Widget.HideSingleLayer = true
	original.Map.Zoom = 4
	original.Basemaps = []service.BasemapConfig{
		{ID: "osm", Name: "OpenStreetMap", URL: "https://tile/{z}/{x}/{y}.png", MaxZoom: 19},
	}
	original.History.Enabled = false
	original.Sessions.IdleTimeout = 90 * time.Second
	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("widget:\n  miniMapMargin: 4\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Widget.MiniMapMargin)
	assert.Equal(t, 90, cfg.Widget.MiniMapWidth)
	assert.Equal(t, -3.0, cfg.Widget.MiniMapZoomOffset)
	assert.True(t, cfg.Widget.AutoZIndex)
}

func TestSessionLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sessions:\n  idleTimeout: 5m\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Sessions.IdleTimeout)
	assert.Equal(t, 1000, cfg.Sessions.MaxSessions)

	t.Setenv("SWITCHER_SESSIONS__MAXSESSIONS", "20")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Sessions.MaxSessions)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SWITCHER_WIDGET__MINIMAPWIDTH", "150")
	t.Setenv("SWITCHER_WIDGET__POSITION", "bottomright")
	t.Setenv("SWITCHER_HISTORY__ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.Widget.MiniMapWidth)
	assert.Equal(t, switcher.PositionBottomRight, cfg.Widget.Position)
	assert.False(t, cfg.History.Enabled)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero width":      func(c *Config) { c.Widget.MiniMapWidth = 0 },
		"negative margin": func(c *Config) { c.Widget.MiniMapMargin = -1 },
		"position":        func(c *Config) { c.Widget.Position = "middle" },
		"zoom range":      func(c *Config) { c.Map.MinZoom, c.Map.MaxZoom = 10, 5 },
		"zoom outside":    func(c *Config) { c.Map.Zoom = 30 },
		"latitude":        func(c *Config) { c.Map.Center[1] = 100 },
		"duplicate id": func(c *Config) {
			c.Basemaps = append(c.Basemaps, c.Basemaps[0])
		},
		"unnamed basemap": func(c *Config) { c.Basemaps[0].Name = "" },
		"history db":      func(c *Config) { c.History.DBName = "" },
		"idle timeout":    func(c *Config) { c.Sessions.IdleTimeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
