// Package config loads the switcher configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/paulmach/orb"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-switcher/internal/service"
	"github.com/joeblew999/plat-switcher/internal/switcher"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: SWITCHER_WIDGET__POSITION=bottomleft.
const EnvPrefix = "SWITCHER_"

// Config is the contents of switcher.yaml.
type Config struct {
	Widget   switcher.Options        `yaml:"widget"`
	Map      service.MapDefaults     `yaml:"map"`
	Basemaps []service.BasemapConfig `yaml:"basemaps"`
	History  History                 `yaml:"history"`
	Sessions service.SessionLimits   `yaml:"sessions"`
}

// History configures the switch history store.
type History struct {
	// Enabled stores switches in DuckDB; otherwise they are kept in memory.
	Enabled bool   `yaml:"enabled"`
	DBName  string `yaml:"dbName"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Widget: switcher.DefaultOptions(),
		Map: service.MapDefaults{
			Center:  orb.Point{13.405, 52.52},
			Zoom:    10,
			MinZoom: 0,
			MaxZoom: 18,
		},
		Basemaps: service.DefaultBasemaps(),
		History:  History{Enabled: true, DBName: "switcher"},
		Sessions: service.SessionLimits{IdleTimeout: 30 * time.Minute, MaxSessions: 1000},
	}
}

// Load reads configuration from the given YAML file over the defaults, then
// overlays SWITCHER_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults, err := yamlv3.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("marshalling defaults: %w", err)
	}
	if err := k.Load(rawBytes(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Load YAML file if it exists.
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// Env names are case-insensitive; map them back onto the known keys.
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[strings.ToLower(key)] = key
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
		if canonical, ok := known[key]; ok {
			return canonical
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validPositions = map[string]bool{
	switcher.PositionTopLeft:     true,
	switcher.PositionTopRight:    true,
	switcher.PositionBottomLeft:  true,
	switcher.PositionBottomRight: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	w := c.Widget
	if w.MiniMapWidth <= 0 || w.MiniMapHeight <= 0 {
		return fmt.Errorf("widget minimap size must be positive, got %dx%d", w.MiniMapWidth, w.MiniMapHeight)
	}
	if w.MiniMapLabelHeight < 0 || w.MiniMapMargin < 0 {
		return errors.New("widget label height and margin must be non-negative")
	}
	if !validPositions[w.Position] {
		return fmt.Errorf("invalid widget position %q: must be one of topleft, topright, bottomleft, bottomright", w.Position)
	}

	m := c.Map
	if m.MaxZoom < m.MinZoom {
		return fmt.Errorf("map maxZoom %v is below minZoom %v", m.MaxZoom, m.MinZoom)
	}
	if m.Zoom < m.MinZoom || m.Zoom > m.MaxZoom {
		return fmt.Errorf("map zoom %v outside [%v, %v]", m.Zoom, m.MinZoom, m.MaxZoom)
	}
	if m.Center.Lat() < -90 || m.Center.Lat() > 90 {
		return fmt.Errorf("map center latitude %v out of range", m.Center.Lat())
	}

	seen := make(map[string]bool)
	for _, b := range c.Basemaps {
		if b.Name == "" {
			return errors.New("basemap name is required")
		}
		if b.ID != "" && seen[b.ID] {
			return fmt.Errorf("duplicate basemap id %q", b.ID)
		}
		seen[b.ID] = true
	}

	if c.History.Enabled && c.History.DBName == "" {
		return errors.New("history dbName is required when history is enabled")
	}
	if c.Sessions.IdleTimeout < 0 || c.Sessions.MaxSessions < 0 {
		return errors.New("session idleTimeout and maxSessions must be non-negative")
	}
	return nil
}

// rawBytes serves an in-memory document to koanf.
type rawBytes []byte

func (r rawBytes) ReadBytes() ([]byte, error) { return r, nil }

func (r rawBytes) Read() (map[string]any, error) {
	return nil, errors.New("rawBytes provider does not support Read()")
}
